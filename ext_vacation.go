package sieve

import (
	"crypto/md5"
	"encoding/hex"
	"net/mail"
	"time"

	"github.com/d--j/go-sieve/ast"
)

// VacationExtension implements the vacation extension (RFC 5230):
// automatic replies with duplicate-response suppression through
// [ScriptEnv.DuplicateCheck].
var VacationExtension = &Extension{
	Name:    "vacation",
	Version: 1,
}

// Vacation optional-operand id codes (per-opcode namespace).
const (
	optVacDays byte = iota + 1
	optVacSubject
	optVacFrom
	optVacAddresses
	optVacMime
	optVacHandle
)

const vacationDefaultDays = 7
const vacationMinDays = 1
const vacationMaxDays = 30

type vacationData struct {
	days      uint64
	subject   string
	from      string
	addresses []string
	mime      bool
	handle    string
}

func vacationStringTag(set func(data *vacationData, s string)) func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
	return func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
		data := cmd.Data.(*vacationData)
		pos := cur.Arg().Position
		tag := cur.Arg().Tag
		cur.Detach()
		arg := cur.Arg()
		if arg == nil || arg.Type != ast.ArgumentString {
			v.errorAt(pos, ":%s requires a string argument", tag)
			return false
		}
		set(data, arg.Str)
		cur.Detach()
		return true
	}
}

var vacationDaysTag = &Tag{
	Identifier: "days",
	Validate: func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
		data := cmd.Data.(*vacationData)
		pos := cur.Arg().Position
		cur.Detach()
		arg := cur.Arg()
		if arg == nil || arg.Type != ast.ArgumentNumber {
			v.errorAt(pos, ":days requires a number argument")
			return false
		}
		data.days = arg.Number
		if data.days < vacationMinDays {
			data.days = vacationMinDays
		}
		if data.days > vacationMaxDays {
			data.days = vacationMaxDays
		}
		cur.Detach()
		return true
	},
}

var vacationAddressesTag = &Tag{
	Identifier: "addresses",
	Validate: func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
		data := cmd.Data.(*vacationData)
		pos := cur.Arg().Position
		cur.Detach()
		arg := cur.Arg()
		if arg == nil || (arg.Type != ast.ArgumentString && arg.Type != ast.ArgumentStringList) {
			v.errorAt(pos, ":addresses requires a string list argument")
			return false
		}
		data.addresses = arg.StringList()
		cur.Detach()
		return true
	},
}

var vacationMimeTag = &Tag{
	Identifier: "mime",
	Validate: func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
		cmd.Data.(*vacationData).mime = true
		cur.Detach()
		return true
	},
}

// vacation
//
//	Syntax: vacation [":days" <number>] [":subject" <string>]
//	                 [":from" <string>] [":addresses" <string-list>]
//	                 [":mime"] [":handle" <string>] <reason: string>
var cmdVacation = &Command{
	Name:     "vacation",
	Kind:     KindCommand,
	MinArgs:  1,
	MaxArgs:  1,
	MaxTests: 0,
	Registered: func(v *Validator, reg *CommandRegistration) {
		reg.RegisterTag(vacationDaysTag, v.extensionID(VacationExtension))
		reg.RegisterTag(&Tag{Identifier: "subject",
			Validate: vacationStringTag(func(d *vacationData, s string) { d.subject = s })},
			v.extensionID(VacationExtension))
		reg.RegisterTag(&Tag{Identifier: "from",
			Validate: vacationStringTag(func(d *vacationData, s string) { d.from = s })},
			v.extensionID(VacationExtension))
		reg.RegisterTag(vacationAddressesTag, v.extensionID(VacationExtension))
		reg.RegisterTag(vacationMimeTag, v.extensionID(VacationExtension))
		reg.RegisterTag(&Tag{Identifier: "handle",
			Validate: vacationStringTag(func(d *vacationData, s string) { d.handle = s })},
			v.extensionID(VacationExtension))
	},
	PreValidate: func(v *Validator, cmd *CommandContext) bool {
		cmd.Data = &vacationData{days: vacationDefaultDays}
		return true
	},
	Validate: func(v *Validator, cmd *CommandContext) bool {
		if !v.ValidatePositionalArgument(cmd, 0, "reason", ast.ArgumentString) {
			return false
		}
		data := cmd.Data.(*vacationData)
		if data.from != "" {
			if _, err := mail.ParseAddress(data.from); err != nil {
				v.errorAt(cmd.Node.Position, "specified :from address '%s' is invalid", data.from)
				return false
			}
		}
		return true
	},
	Generate: func(g *Generator, cmd *CommandContext) bool {
		data := cmd.Data.(*vacationData)
		if !g.EmitOpcode(opVacation) {
			return false
		}
		if data.days != vacationDefaultDays {
			g.EmitOptional(optVacDays)
			g.EmitNumber(data.days)
		}
		if data.subject != "" {
			g.EmitOptional(optVacSubject)
			g.EmitString(data.subject)
		}
		if data.from != "" {
			g.EmitOptional(optVacFrom)
			g.EmitString(data.from)
		}
		if data.addresses != nil {
			g.EmitOptional(optVacAddresses)
			g.EmitStringList(data.addresses)
		}
		if data.mime {
			g.EmitOptional(optVacMime)
		}
		if data.handle != "" {
			g.EmitOptional(optVacHandle)
			g.EmitString(data.handle)
		}
		g.EmitOptionalEnd()
		return g.GenerateArguments(cmd)
	},
}

var opVacation = &Opcode{
	Mnemonic: "VACATION",
	Code:     0,
	Dump: func(d *DumpEnv) error {
		if err := readVacationOptionals(&d.codeReader, &vacationData{days: vacationDefaultDays}); err != nil {
			return err
		}
		return d.DumpString("reason")
	},
	Execute: func(renv *RuntimeEnv) error {
		data := vacationData{days: vacationDefaultDays}
		if err := readVacationOptionals(&renv.Interp.codeReader, &data); err != nil {
			return err
		}
		reason, err := renv.Interp.ReadString()
		if err != nil {
			return err
		}
		handle := data.handle
		if handle == "" {
			// derive a stable tracking handle from the response content
			sum := md5.Sum([]byte(data.subject + "\x00" + reason))
			handle = hex.EncodeToString(sum[:])
		}
		return renv.Result.AddVacation(&VacationResponse{
			Reason:    reason,
			Subject:   data.subject,
			From:      data.from,
			Handle:    handle,
			Mime:      data.mime,
			SendDelay: time.Duration(data.days) * 24 * time.Hour,
		})
	},
}

func readVacationOptionals(r *codeReader, data *vacationData) error {
	return r.ReadOptionals(func(code byte) error {
		var err error
		switch code {
		case optVacDays:
			data.days, err = r.ReadNumber()
		case optVacSubject:
			data.subject, err = r.ReadString()
		case optVacFrom:
			data.from, err = r.ReadString()
		case optVacAddresses:
			data.addresses, err = r.ReadStringList()
		case optVacMime:
			data.mime = true
		case optVacHandle:
			data.handle, err = r.ReadString()
		default:
			return corruptf("unknown optional operand %d in vacation", code)
		}
		return err
	})
}

func init() {
	opVacation.Ext = VacationExtension
	VacationExtension.Opcodes = []*Opcode{opVacation}
	VacationExtension.ValidatorLoad = func(v *Validator) error {
		v.RegisterCommand(cmdVacation, v.extensionID(VacationExtension))
		return nil
	}
}
