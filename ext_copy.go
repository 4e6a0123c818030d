package sieve

import (
	"github.com/d--j/go-sieve/ast"
)

// CopyExtension implements the copy extension (RFC 3894): the :copy
// modifier on fileinto and redirect, which suppresses the cancellation of
// the implicit keep.
var CopyExtension = &Extension{
	Name:    "copy",
	Version: 1,
}

var copyTag = &Tag{
	Identifier: "copy",
	Validate: func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
		data, ok := cmd.Data.(*actionData)
		pos := cur.Arg().Position
		cur.Detach()
		if !ok {
			v.errorAt(pos, "the %s command does not accept the :copy tag", cmd.Command.Name)
			return false
		}
		data.hasCopy = true
		return true
	},
}

func init() {
	CopyExtension.ValidatorLoad = func(v *Validator) error {
		id := v.extensionID(CopyExtension)
		v.RegisterExternalTag("fileinto", KindCommand, copyTag, id)
		v.RegisterExternalTag("redirect", KindCommand, copyTag, id)
		return nil
	}
}
