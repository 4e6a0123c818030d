package sieve

// coreCommands are the commands and tests of the base language. They are
// registered with every validator; extension commands only become visible
// through require.
var coreCommands = []*Command{
	cmdRequire,
	cmdIf, cmdElsif, cmdElse,
	cmdStop,
	cmdKeep, cmdDiscard, cmdRedirect,
	tstSize, tstHeader, tstAddress, tstExists,
	tstTrue, tstFalse,
	tstAnyof, tstAllof, tstNot,
}

// actionData is the validation context of the action commands that accept
// the :copy and :flags modifier tags.
type actionData struct {
	flags   []string
	hasCopy bool
}
