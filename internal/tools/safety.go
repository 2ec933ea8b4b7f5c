package tools

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var actionCaser = cases.Title(language.English)

// CheckMutatingOperation refuses a mutating tool when the server runs in
// read-only mode. It returns nil when the call may proceed.
//
// Protected actions are power (start, stop, reboot), exec and snapshot.
func CheckMutatingOperation(readOnly bool, d Descriptor) *Result {
	if !readOnly || !d.Mutating() {
		return nil
	}
	r := Failure(fmt.Sprintf("%s operations are not allowed in read-only mode", actionCaser.String(d.Action)))
	return &r
}
