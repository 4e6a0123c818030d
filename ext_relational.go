package sieve

// RelationalExtension implements the relational extension (RFC 5231): the
// :count and :value match types. It contributes no commands or opcodes;
// loading it makes the match types visible to the match tests.
var RelationalExtension = &Extension{
	Name:    "relational",
	Version: 1,
}

var matchTypeCount = &MatchType{
	Identifier:   "count",
	Extension:    RelationalExtension,
	NeedsRelator: true,
}

var matchTypeValue = &MatchType{
	Identifier:   "value",
	Extension:    RelationalExtension,
	NeedsRelator: true,
}

func init() {
	RelationalExtension.Load = func(inst *Instance, id ExtensionID) error {
		inst.RegisterMatchType(matchTypeCount)
		inst.RegisterMatchType(matchTypeValue)
		return nil
	}
}
