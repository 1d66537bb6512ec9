// Package binding renders the backdoor statements that tie a register field
// to its bit slice in the register's HDL storage.
package binding

import (
	"fmt"
	"strings"
)

// Scalar returns the statement binding field of register inside the register
// class build() function:
//
//	this.add_hdl_path_slice({this.get_name(),"_Ring_Size"},RING_SIZE.get_lsb_pos(),RING_SIZE.get_n_bits());
//
// The label keeps the document casing; the field reference is upper-cased.
// The register name is resolved at run time through get_name(), so register
// does not appear in the statement.
func Scalar(register, field string) string {
	upper := strings.ToUpper(field)
	return fmt.Sprintf(`this.add_hdl_path_slice({this.get_name(),"_%s"},%s.get_lsb_pos(),%s.get_n_bits());`,
		field, upper, upper)
}

// ArrayIndexed returns the statement binding field of element index of the
// register array root + "_N", for use inside the array's construction loop:
//
//	FOO_R1_Y_N[i].add_hdl_path_slice($sformatf("FOO_R1_Y_%0d_V",i),FOO_R1_Y_N[i].V.get_lsb_pos(),FOO_R1_Y_N[i].V.get_n_bits());
func ArrayIndexed(root, field, index string) string {
	upper := strings.ToUpper(field)
	elem := fmt.Sprintf("%s_N[%s]", root, index)
	return fmt.Sprintf(`%s.add_hdl_path_slice($sformatf("%s_%%0d_%s",%s),%s.%s.get_lsb_pos(),%s.%s.get_n_bits());`,
		elem, root, field, index, elem, upper, elem, upper)
}
