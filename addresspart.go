package sieve

import (
	"strings"

	"golang.org/x/net/idna"

	"github.com/d--j/go-sieve/ast"
)

// IDNAProfile is the [*idna.Profile] used to fold internationalized domain
// names before an address-part comparison. It defaults to [idna.Lookup].
var IDNAProfile = idna.Lookup

// AddressPart selects which part of an email address a match test compares.
type AddressPart struct {
	Identifier string
	// Extension owns non-core address parts; nil for the built-ins.
	Extension *Extension
	// Extract returns the relevant part of the address. local and domain
	// are the raw halves around the last '@'.
	Extract func(local, domain string) string
}

// splitAddress splits an address into its local part and domain at the last
// '@'. An address without '@' is all local part.
func splitAddress(addr string) (local, domain string) {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return addr, ""
	}
	return addr[:at], addr[at+1:]
}

// foldDomain converts an internationalized domain to its ASCII
// representation so that U-label and A-label spellings compare equal. The
// unchanged domain is used when conversion fails.
func foldDomain(domain string) string {
	if domain == "" {
		return ""
	}
	ascii, err := IDNAProfile.ToASCII(domain)
	if err != nil {
		return domain
	}
	return ascii
}

var addressPartAll = &AddressPart{
	Identifier: "all",
	Extract: func(local, domain string) string {
		if domain == "" {
			return local
		}
		return local + "@" + foldDomain(domain)
	},
}

var addressPartLocal = &AddressPart{
	Identifier: "localpart",
	Extract:    func(local, domain string) string { return local },
}

var addressPartDomain = &AddressPart{
	Identifier: "domain",
	Extract:    func(local, domain string) string { return foldDomain(domain) },
}

// addressPartExtension is the internal pseudo-extension carrying the
// address-part registry and the address-part tag family.
var addressPartExtension = &Extension{
	Name: "@address-parts",
	Load: func(inst *Instance, id ExtensionID) error {
		inst.addressPartExt = id
		inst.RegisterAddressPart(addressPartAll)
		inst.RegisterAddressPart(addressPartLocal)
		inst.RegisterAddressPart(addressPartDomain)
		return nil
	},
}

// RegisterAddressPart adds an address part to the instance. Extensions
// (e.g. a subaddress implementation) call this from their Load hook.
func (i *Instance) RegisterAddressPart(p *AddressPart) {
	i.addressParts[p.Identifier] = p
}

func (i *Instance) lookupAddressPart(name string) *AddressPart {
	return i.addressParts[name]
}

// addressPartTag is the polymorphic tag family covering every registered
// address part (:all, :localpart, :domain, ...).
var addressPartTag = &Tag{
	Identifier: "address-part",
	InstanceOf: func(v *Validator, cmd *CommandContext, name string) bool {
		p := v.instance.lookupAddressPart(name)
		return p != nil && v.visible(p.Extension)
	},
	Validate: func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
		arg := cur.Arg()
		spec, ok := cmd.Data.(hasMatchSpec)
		if !ok {
			v.errorAt(arg.Position, "the %s %s does not accept an address-part tag",
				cmd.Command.Name, cmd.Command.Kind)
			return false
		}
		p := v.instance.lookupAddressPart(arg.Tag)
		pos := arg.Position
		cur.Detach()
		if spec.matchSpec().AddressPart != nil {
			v.errorAt(pos, "multiple address-part tags were specified, only one is allowed")
			return false
		}
		spec.matchSpec().AddressPart = p
		return true
	},
}

// LinkAddressPartTags registers the address-part tag family with an address
// test.
func LinkAddressPartTags(v *Validator, reg *CommandRegistration) {
	reg.RegisterTag(addressPartTag, v.instance.addressPartExt)
}
