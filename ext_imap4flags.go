package sieve

import (
	"strings"

	"github.com/d--j/go-sieve/ast"
)

// Imap4FlagsExtension implements the imap4flags extension (RFC 5232):
// setflag, addflag and removeflag maintain an internal flag set during
// execution, and the :flags modifier attaches an explicit flag list to a
// keep or fileinto action. Actions without :flags use the internal set.
var Imap4FlagsExtension = &Extension{
	Name:    "imap4flags",
	Version: 1,
}

// flagState is the interpreter-scoped internal flag set.
type flagState struct {
	flags []string
}

// parseFlags splits flag list entries on whitespace and drops duplicates
// (flag names compare case-insensitively, the first spelling wins).
func parseFlags(list []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, entry := range list {
		for _, flag := range strings.Fields(entry) {
			key := asciiLower(flag)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, flag)
		}
	}
	return out
}

func removeFlags(from, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, f := range remove {
		drop[asciiLower(f)] = true
	}
	out := []string{}
	for _, f := range from {
		if !drop[asciiLower(f)] {
			out = append(out, f)
		}
	}
	return out
}

// internalFlags returns the interpreter's current internal flag set, or nil
// when the imap4flags extension is not active in this execution.
func internalFlags(in *Interp) []string {
	reg := in.binary.instance.registry.index[Imap4FlagsExtension.Name]
	if reg == nil {
		return nil
	}
	st, _ := in.ExtContext(reg.id).(*flagState)
	if st == nil {
		return nil
	}
	return st.flags
}

func flagStateOf(renv *RuntimeEnv) *flagState {
	reg := renv.Instance.registry.index[Imap4FlagsExtension.Name]
	if reg == nil {
		return nil
	}
	st, _ := renv.Interp.ExtContext(reg.id).(*flagState)
	return st
}

// setflag / addflag / removeflag
//
//	Syntax: setflag <list-of-flags: string-list>
//	        addflag <list-of-flags: string-list>
//	        removeflag <list-of-flags: string-list>
func flagCommand(name string, op *Opcode) *Command {
	return &Command{
		Name:     name,
		Kind:     KindCommand,
		MinArgs:  1,
		MaxArgs:  1,
		MaxTests: 0,
		Validate: func(v *Validator, cmd *CommandContext) bool {
			return v.ValidatePositionalArgument(cmd, 0, "list of flags", ast.ArgumentStringList)
		},
		Generate: func(g *Generator, cmd *CommandContext) bool {
			if !g.EmitOpcode(op) {
				return false
			}
			g.EmitStringList(cmd.PositionalArguments()[0].StringList())
			return true
		},
	}
}

func executeFlagOp(apply func(st *flagState, flags []string)) func(renv *RuntimeEnv) error {
	return func(renv *RuntimeEnv) error {
		list, err := renv.Interp.ReadStringList()
		if err != nil {
			return err
		}
		if st := flagStateOf(renv); st != nil {
			apply(st, parseFlags(list))
		}
		return nil
	}
}

var opSetFlag = &Opcode{
	Mnemonic: "SETFLAG",
	Code:     0,
	Dump:     func(d *DumpEnv) error { return d.DumpStringList("flags") },
	Execute: executeFlagOp(func(st *flagState, flags []string) {
		st.flags = flags
	}),
}

var opAddFlag = &Opcode{
	Mnemonic: "ADDFLAG",
	Code:     1,
	Dump:     func(d *DumpEnv) error { return d.DumpStringList("flags") },
	Execute: executeFlagOp(func(st *flagState, flags []string) {
		st.flags = parseFlags(append(append([]string{}, st.flags...), flags...))
	}),
}

var opRemoveFlag = &Opcode{
	Mnemonic: "REMOVEFLAG",
	Code:     2,
	Dump:     func(d *DumpEnv) error { return d.DumpStringList("flags") },
	Execute: executeFlagOp(func(st *flagState, flags []string) {
		st.flags = removeFlags(st.flags, flags)
	}),
}

// flagsTag implements the :flags modifier on keep and fileinto.
var flagsTag = &Tag{
	Identifier: "flags",
	Validate: func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
		data, ok := cmd.Data.(*actionData)
		pos := cur.Arg().Position
		cur.Detach()
		if !ok {
			v.errorAt(pos, "the %s command does not accept the :flags tag", cmd.Command.Name)
			return false
		}
		arg := cur.Arg()
		if arg == nil || (arg.Type != ast.ArgumentString && arg.Type != ast.ArgumentStringList) {
			v.errorAt(pos, ":flags requires a list of flags as argument")
			return false
		}
		data.flags = parseFlags(arg.StringList())
		cur.Detach()
		return true
	},
}

func init() {
	cmdSetFlag := flagCommand("setflag", opSetFlag)
	cmdAddFlag := flagCommand("addflag", opAddFlag)
	cmdRemoveFlag := flagCommand("removeflag", opRemoveFlag)

	opSetFlag.Ext = Imap4FlagsExtension
	opAddFlag.Ext = Imap4FlagsExtension
	opRemoveFlag.Ext = Imap4FlagsExtension
	Imap4FlagsExtension.Opcodes = []*Opcode{opSetFlag, opAddFlag, opRemoveFlag}

	Imap4FlagsExtension.ValidatorLoad = func(v *Validator) error {
		id := v.extensionID(Imap4FlagsExtension)
		v.RegisterCommand(cmdSetFlag, id)
		v.RegisterCommand(cmdAddFlag, id)
		v.RegisterCommand(cmdRemoveFlag, id)
		v.RegisterExternalTag("keep", KindCommand, flagsTag, id)
		v.RegisterExternalTag("fileinto", KindCommand, flagsTag, id)
		return nil
	}
	Imap4FlagsExtension.InterpreterLoad = func(in *Interp) error {
		reg := in.binary.instance.registry.index[Imap4FlagsExtension.Name]
		if reg != nil {
			in.SetExtContext(reg.id, &flagState{})
		}
		return nil
	}
}
