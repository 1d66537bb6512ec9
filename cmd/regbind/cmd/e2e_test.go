package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/OpenTraceLab/regbind/internal/textio"
)

const e2eRDL = `reg FOO_R0_X {
    field { name = "A"; } A[7:0];
    field { name = "Reserved"; } RESERVED[31:8];
};
reg FOO_R1_Y {
    field { } V[15:0];
};
addrmap FOO {
    FOO_R0_X FOO_R0_X @0x0;
    FOO_R1_Y FOO_R1_Y[4] @0x10 += 0x4;
    external FOO_R2_Z FOO_R2_Z @0x20;
    FOO_R5 FOO_R5 @0x30;
    FOO_RSVD_0 FOO_RSVD_0 @0x34;
};
`

const e2eSV = `class FOO_R0_X_MAC_FOO_REG extends uvm_reg;
    rand uvm_reg_field A;
    rand uvm_reg_field RESERVED;
    virtual function void build();
    endfunction
endclass

class FOO_R5_FOO_REG extends uvm_reg;
    virtual function void build();
    endfunction
endclass

class FOO_MAC_FOO_BLOCK extends uvm_reg_block;
    virtual function void build();
        foreach (FOO_R1_Y_N[i]) begin
            int unsigned addr_incr = i * 'h4;
            FOO_R1_Y_N[i] = FOO_R1_Y_MAC_FOO_REG::type_id::create($sformatf("FOO_R1_Y_N[%0d]", i));
            FOO_R1_Y_N[i].configure(this, null, "");
            FOO_R1_Y_N[i].build();
        end
    endfunction
endclass
`

const e2eBLK = "\tRXDMA_R0_RING <mac_rxdma_reg_dec: 0x4> 32\n" +
	"\t{\n" +
	"\t\tRing_Size 23:8 NUM DEF=0x0000 RW;\n" +
	"\t\tRsvd_0 31:24 NUM DEF=0x00 RO;\n" +
	"\t};\n"

const e2eBLKSV = "class RXDMA_R0_RING_MAC_RXDMA_REG extends uvm_reg;\n" +
	"    rand uvm_reg_field RING_SIZE;\n" +
	"    function void build();\n" +
	"    endfunction\n" +
	"endclass\n"

const scalarA = `this.add_hdl_path_slice({this.get_name(),"_A"},A.get_lsb_pos(),A.get_n_bits());`

// writeFixture creates name in dir and returns its path.
func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(strings.Split(strings.Trim(f.DefValue, "[]"), ","))
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		c.Flags().VisitAll(reset)
	}
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	resetFlags()
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	<-done

	return buf.String(), err
}

// TestAnnotateE2E tests the annotate command end-to-end
func TestAnnotateE2E(t *testing.T) {
	dir := t.TempDir()
	rdlPath := writeFixture(t, dir, "foo.rdl", e2eRDL)
	svPath := writeFixture(t, dir, "foo_reg_model.sv", e2eSV)

	output, err := execute(t, "annotate", "-b", "foo", "--rdl", rdlPath, "--source", svPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}

	for _, want := range []string{
		"annotated",
		"external",
		"missing-fields",
		"disqualified",
		"Summary for block FOO",
		"Inserted:   2 statement(s)",
		"Changed:    yes",
		"1 register(s) could not be annotated",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
		}
	}

	outPath := filepath.Join(dir, "foo_reg_model_OUTPUT.sv")
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("default output not written: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "    virtual function void build();\n        "+scalarA+"\n    endfunction\n") {
		t.Errorf("scalar statement missing:\n%s", got)
	}
	if !strings.Contains(got, `            FOO_R1_Y_N[i].add_hdl_path_slice($sformatf("FOO_R1_Y_%0d_V",i),`) {
		t.Errorf("array statement missing:\n%s", got)
	}
	if strings.Contains(got, `"_RESERVED"`) {
		t.Error("reserved field must not be bound")
	}

	src, _ := os.ReadFile(svPath)
	if string(src) != e2eSV {
		t.Error("source must not change without --in-place")
	}

	// A second pass over the output changes nothing.
	output, err = execute(t, "annotate", "-b", "FOO", "--rdl", rdlPath, "--source", outPath, "--in-place")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "Changed:    no") || !strings.Contains(output, "already-annotated") {
		t.Errorf("second run should be a no-op:\n%s", output)
	}
	again, _ := os.ReadFile(outPath)
	if string(again) != got {
		t.Error("second run rewrote the output")
	}
}

func TestAnnotateInPlaceBackupE2E(t *testing.T) {
	dir := t.TempDir()
	rdlPath := writeFixture(t, dir, "foo.rdl", e2eRDL)
	svPath := writeFixture(t, dir, "foo_reg_model.sv", e2eSV)

	output, err := execute(t, "annotate", "-b", "foo", "--rdl", rdlPath, "-s", svPath, "--in-place", "--backup")
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}

	data, _ := os.ReadFile(svPath)
	if !strings.Contains(string(data), scalarA) {
		t.Error("source was not annotated in place")
	}
	if _, err := os.Stat(filepath.Join(dir, "foo_reg_model_OUTPUT.sv")); !os.IsNotExist(err) {
		t.Error("--in-place must not write the default output file")
	}

	orig, err := textio.ReadBackup(svPath + ".orig.xz")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(orig) != e2eSV {
		t.Error("backup does not hold the original source")
	}
	if !strings.Contains(output, "Backup: "+svPath+".orig.xz") {
		t.Errorf("backup path not reported:\n%s", output)
	}
}

func TestAnnotateDryRunE2E(t *testing.T) {
	dir := t.TempDir()
	rdlPath := writeFixture(t, dir, "foo.rdl", e2eRDL)
	svPath := writeFixture(t, dir, "foo_reg_model.sv", e2eSV)

	output, err := execute(t, "annotate", "-b", "foo", "--rdl", rdlPath, "--source", svPath, "--dry-run")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Contains(output, "Written:") {
		t.Errorf("dry run must not write:\n%s", output)
	}
	if _, err := os.Stat(filepath.Join(dir, "foo_reg_model_OUTPUT.sv")); !os.IsNotExist(err) {
		t.Error("dry run wrote an output file")
	}
}

func TestAnnotateLegacyBLKE2E(t *testing.T) {
	dir := t.TempDir()
	blkPath := writeFixture(t, dir, "rxdma.blk", e2eBLK)
	svPath := writeFixture(t, dir, "rxdma.sv", e2eBLKSV)
	outPath := filepath.Join(dir, "custom.sv")

	output, err := execute(t, "annotate", "--block", "rxdma",
		"--input-blkfile", blkPath, "--input-svfile", svPath, "-o", outPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	want := "    function void build();\n" +
		"        this.add_hdl_path_slice({this.get_name(),\"_Ring_Size\"},RING_SIZE.get_lsb_pos(),RING_SIZE.get_n_bits());\n" +
		"    endfunction\n"
	if !strings.Contains(string(data), want) {
		t.Errorf("unexpected output:\n%s", data)
	}
	if strings.Contains(string(data), "Rsvd_0") {
		t.Error("Rsvd_0 must be skipped")
	}
}

func TestAnnotateErrorsE2E(t *testing.T) {
	dir := t.TempDir()
	rdlPath := writeFixture(t, dir, "foo.rdl", e2eRDL)
	svPath := writeFixture(t, dir, "foo_reg_model.sv", e2eSV)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing block",
			args:    []string{"annotate", "--rdl", rdlPath, "--source", svPath},
			wantErr: "block",
		},
		{
			name:    "unsupported block",
			args:    []string{"annotate", "-b", "umac", "--rdl", rdlPath, "--source", svPath},
			wantErr: "UMAC",
		},
		{
			name:    "bad format",
			args:    []string{"annotate", "-b", "foo", "--rdl", rdlPath, "--source", svPath, "--format", "xml"},
			wantErr: "format",
		},
		{
			name:    "backup without in-place",
			args:    []string{"annotate", "-b", "foo", "--rdl", rdlPath, "--source", svPath, "--backup"},
			wantErr: "--in-place",
		},
		{
			name:    "in-place and output",
			args:    []string{"annotate", "-b", "foo", "--rdl", rdlPath, "--source", svPath, "--in-place", "-o", "x.sv"},
			wantErr: "in-place",
		},
		{
			name:    "missing source",
			args:    []string{"annotate", "-b", "foo", "--rdl", rdlPath, "--source", filepath.Join(dir, "nope.sv")},
			wantErr: "nope.sv",
		},
		{
			name:    "no registers for block",
			args:    []string{"annotate", "-b", "bar", "--rdl", rdlPath, "--source", svPath},
			wantErr: "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

// TestInspectE2E tests the inspect command end-to-end
func TestInspectE2E(t *testing.T) {
	dir := t.TempDir()
	rdlPath := writeFixture(t, dir, "foo.rdl", e2eRDL)

	output, err := execute(t, "inspect", "-b", "foo", "--rdl", rdlPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, want := range []string{
		"Block: FOO (rdl)",
		"Address map: FOO",
		"Registers: 2 described",
		"A[7:0], RESERVED[31:8]",
		"FOO_R1_Y[4]",
		"Disqualified: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
		}
	}

	output, err = execute(t, "inspect", "-b", "foo", "--rdl", rdlPath, "--json")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var info InspectInfo
	if err := json.Unmarshal([]byte(output), &info); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, output)
	}
	if info.Block != "FOO" || len(info.Registers) != 2 || len(info.Entries) != 4 {
		t.Errorf("unexpected inspection: %+v", info)
	}
	if info.Entries[2].Category != "array" || info.Entries[2].Count != 4 {
		t.Errorf("third entry should be the array, got %+v", info.Entries[2])
	}
}
