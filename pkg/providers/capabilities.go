// Package providers declares the product catalogue and the capability sets
// the facade routes by. Each backend product owns a disjoint set of asset
// operations; a capability no product declares fails fast with a local
// unsupported-operation error instead of a transport error.
package providers

// Product identifies one backend product of the target suite.
type Product string

const (
	// ProductManager owns folders, test cases, attachments, and links.
	// It is the mandatory product: nothing migrates without it.
	ProductManager Product = "manager"

	// ProductParameters owns parameter sets and datasets.
	ProductParameters Product = "parameters"

	// ProductScenario owns BDD features.
	ProductScenario Product = "scenario"

	// ProductPulse owns automation rules.
	ProductPulse Product = "pulse"

	// ProductDataExport owns read-only search and export queries.
	ProductDataExport Product = "dataexport"
)

// Capability names one operation on one canonical asset kind.
type Capability string

const (
	CapFolderRead       Capability = "folders.read"
	CapFolderCreate     Capability = "folders.create"
	CapTestCaseRead     Capability = "testcases.read"
	CapTestCaseCreate   Capability = "testcases.create"
	CapTestCaseDelete   Capability = "testcases.delete"
	CapAttachmentUpload Capability = "attachments.upload"
	CapLinkCreate       Capability = "links.create"
	CapParameterRead    Capability = "parameters.read"
	CapParameterCreate  Capability = "parameters.create"
	CapParameterDelete  Capability = "parameters.delete"
	CapFeatureRead      Capability = "features.read"
	CapFeatureCreate    Capability = "features.create"
	CapRuleRead         Capability = "rules.read"
	CapRuleCreate       Capability = "rules.create"
	CapRuleDelete       Capability = "rules.delete"
	CapSearch           Capability = "testcases.search"

	// CapCustomFieldCreate is declared by no product; requesting it always
	// yields the unsupported-operation error.
	CapCustomFieldCreate Capability = "customfields.create"
)

// CapabilitySet is the set of capabilities one product declares.
type CapabilitySet map[Capability]bool

// Has reports whether the set contains c.
func (s CapabilitySet) Has(c Capability) bool {
	return s[c]
}

// capabilities maps each product to its declared capability set.
var capabilities = map[Product]CapabilitySet{
	ProductManager: {
		CapFolderRead:       true,
		CapFolderCreate:     true,
		CapTestCaseRead:     true,
		CapTestCaseCreate:   true,
		CapTestCaseDelete:   true,
		CapAttachmentUpload: true,
		CapLinkCreate:       true,
	},
	ProductParameters: {
		CapParameterRead:   true,
		CapParameterCreate: true,
		CapParameterDelete: true,
	},
	ProductScenario: {
		CapFeatureRead:   true,
		CapFeatureCreate: true,
	},
	ProductPulse: {
		CapRuleRead:   true,
		CapRuleCreate: true,
		CapRuleDelete: true,
	},
	ProductDataExport: {
		CapSearch: true,
	},
}

// Capabilities returns the capability set declared by p. Unknown products
// return an empty set.
func Capabilities(p Product) CapabilitySet {
	return capabilities[p]
}

// Owner returns the product declaring c, or false when no product does.
func Owner(c Capability) (Product, bool) {
	for p, set := range capabilities {
		if set.Has(c) {
			return p, true
		}
	}
	return "", false
}
