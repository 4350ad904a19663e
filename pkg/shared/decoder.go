package shared

import "github.com/go-playground/form"

// Decoder is the shared form/query decoder used by controllers.
var Decoder = form.NewDecoder()

func init() {
	Decoder.SetTagName("form")
}
