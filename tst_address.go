package sieve

import (
	"net/mail"
	"strings"

	"github.com/d--j/go-sieve/ast"
)

// address
//
//	Syntax: address [ADDRESS-PART] [COMPARATOR] [MATCH-TYPE]
//	                <header-list: string-list> <key-list: string-list>
//
// Unlike the header test, address parses the header values as address
// lists and compares the selected part of each address.

type addressTestData struct {
	MatchSpec
}

var tstAddress = &Command{
	Name:     "address",
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
		cmd.Data = &addressTestData{}
		return true
	},
	Validate: validateAddressTest,
	Generate: func(g *Generator, cmd *CommandContext) bool {
		data := cmd.Data.(*addressTestData)
		if !g.EmitOpcode(opAddress) {
			return false
		}
		g.emitMatchOptionals(&data.MatchSpec)
		positionals := cmd.PositionalArguments()
		g.EmitStringList(positionals[0].StringList())
		g.EmitStringList(positionals[1].StringList())
		return true
	},
}

func validateAddressTest(v *Validator, cmd *CommandContext) bool {
	if !v.ValidatePositionalArgument(cmd, 0, "header list", ast.ArgumentStringList) ||
		!v.ValidatePositionalArgument(cmd, 1, "key list", ast.ArgumentStringList) {
		return false
	}
	data := cmd.Data.(*addressTestData)
	return validateMatchSpec(v, cmd, &data.MatchSpec)
}

// parseAddressValues extracts the selected address parts from raw header
// values. A value that cannot be parsed as an address list is a recoverable
// runtime error per the base specification.
func parseAddressValues(headerValues []string, part *AddressPart) ([]string, error) {
	var out []string
	for _, raw := range headerValues {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		addrs, err := mail.ParseAddressList(raw)
		if err != nil {
			return nil, RuntimeErrorf("failed to parse address header value '%s': %s", raw, err)
		}
		for _, a := range addrs {
			local, domain := splitAddress(a.Address)
			out = append(out, part.Extract(local, domain))
		}
	}
	return out, nil
}

var opAddress = registerCoreOpcode(&Opcode{
	Mnemonic: "ADDRESS",
	Code:     codeAddress,
	Dump:     dumpMatchTest,
	Execute: func(renv *RuntimeEnv) error {
		m, part, err := renv.Interp.readMatchOptionals(renv.Instance)
		if err != nil {
			return err
		}
		names, err := renv.Interp.ReadStringList()
		if err != nil {
			return err
		}
		keys, err := renv.Interp.ReadStringList()
		if err != nil {
			return err
		}
		var values []string
		for _, name := range names {
			hv, err := renv.Message.HeaderValues(name, false)
			if err != nil {
				return RuntimeErrorf("failed to read header '%s': %s", name, err)
			}
			parsed, err := parseAddressValues(hv, part)
			if err != nil {
				return err
			}
			values = append(values, parsed...)
		}
		renv.Interp.SetTestResult(m.matchValues(values, keys))
		return nil
	},
})
