package sieve

import (
	"errors"

	"github.com/d--j/go-sieve/ast"
)

// EnvelopeExtension implements the envelope test (RFC 5228, section 5.4)
// over the message's SMTP envelope.
var EnvelopeExtension = &Extension{
	Name:    "envelope",
	Version: 1,
}

type envelopeTestData struct {
	MatchSpec
	fields []EnvelopeField
}

func envelopeFieldByName(name string) (EnvelopeField, bool) {
	switch asciiLower(name) {
	case "from":
		return EnvelopeFrom, true
	case "to":
		return EnvelopeTo, true
	case "orig_to":
		return EnvelopeOrigTo, true
	case "auth":
		return EnvelopeAuth, true
	}
	return 0, false
}

// envelope
//
//	Syntax: envelope [ADDRESS-PART] [COMPARATOR] [MATCH-TYPE]
//	                 <envelope-part: string-list> <key-list: string-list>
var tstEnvelope = &Command{
	Name:     "envelope",
	Kind:     KindTest,
	MinArgs:  2,
	MaxArgs:  2,
	MaxTests: 0,
	Registered: func(v *Validator, reg *CommandRegistration) {
		LinkAddressPartTags(v, reg)
		LinkComparatorTags(v, reg)
		LinkMatchTypeTags(v, reg)
	},
	PreValidate: func(v *Validator, cmd *CommandContext) bool {
		cmd.Data = &envelopeTestData{}
		return true
	},
	Validate: func(v *Validator, cmd *CommandContext) bool {
		if !v.ValidatePositionalArgument(cmd, 0, "envelope part", ast.ArgumentStringList) ||
			!v.ValidatePositionalArgument(cmd, 1, "key list", ast.ArgumentStringList) {
			return false
		}
		data := cmd.Data.(*envelopeTestData)
		arg := cmd.PositionalArguments()[0]
		for _, name := range arg.StringList() {
			field, ok := envelopeFieldByName(name)
			if !ok {
				v.errorAt(arg.Position, "unknown envelope part '%s'", name)
				return false
			}
			data.fields = append(data.fields, field)
		}
		return validateMatchSpec(v, cmd, &data.MatchSpec)
	},
	Generate: func(g *Generator, cmd *CommandContext) bool {
		data := cmd.Data.(*envelopeTestData)
		if !g.EmitOpcode(opEnvelope) {
			return false
		}
		g.emitMatchOptionals(&data.MatchSpec)
		g.EmitNumber(uint64(len(data.fields)))
		for _, f := range data.fields {
			g.EmitNumber(uint64(f))
		}
		g.EmitStringList(cmd.PositionalArguments()[1].StringList())
		return true
	},
}

var opEnvelope = &Opcode{
	Mnemonic: "ENVELOPE",
	Code:     0,
	Dump: func(d *DumpEnv) error {
		if err := d.dumpMatchOptionals(); err != nil {
			return err
		}
		count, err := d.ReadNumber()
		if err != nil {
			return err
		}
		for i := uint64(0); i < count; i++ {
			f, err := d.ReadNumber()
			if err != nil {
				return err
			}
			d.Printf("field %s", EnvelopeField(f))
		}
		return d.DumpStringList("keys")
	},
	Execute: func(renv *RuntimeEnv) error {
		m, part, err := renv.Interp.readMatchOptionals(renv.Instance)
		if err != nil {
			return err
		}
		count, err := renv.Interp.ReadNumber()
		if err != nil {
			return err
		}
		if count > uint64(len(renv.Interp.code)) {
			return corruptf("envelope field count %d out of range", count)
		}
		fields := make([]EnvelopeField, 0, count)
		for i := uint64(0); i < count; i++ {
			f, err := renv.Interp.ReadNumber()
			if err != nil {
				return err
			}
			if f > uint64(EnvelopeAuth) {
				return corruptf("invalid envelope field %d", f)
			}
			fields = append(fields, EnvelopeField(f))
		}
		keys, err := renv.Interp.ReadStringList()
		if err != nil {
			return err
		}
		var values []string
		for _, field := range fields {
			for _, addr := range renv.Message.Envelope(field) {
				local, domain := splitAddress(addr)
				values = append(values, part.Extract(local, domain))
			}
		}
		renv.Interp.SetTestResult(m.matchValues(values, keys))
		return nil
	},
}

func init() {
	opEnvelope.Ext = EnvelopeExtension
	EnvelopeExtension.Opcodes = []*Opcode{opEnvelope}
	EnvelopeExtension.ValidatorLoad = func(v *Validator) error {
		if v.Flags()&CompileNoEnvelope != 0 {
			return errors.New("the envelope test is not available in this context")
		}
		v.RegisterCommand(tstEnvelope, v.extensionID(EnvelopeExtension))
		return nil
	}
}
