//go:build debug

package param

import "fmt"

// failUnknown panics: an unknown parameter id is a programmer error and debug
// builds stop at the first one.
func failUnknown(op, id string) {
	panic(fmt.Sprintf("param: %s on unknown parameter %q", op, id))
}
