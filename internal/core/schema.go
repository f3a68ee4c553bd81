package core

// NodeDescription Static schema of a node, what a workflow editor renders.
type NodeDescription struct {
	DisplayName string                  `json:"displayName" yaml:"displayName"`
	Name        string                  `json:"name" yaml:"name"`
	Icon        string                  `json:"icon,omitempty" yaml:"icon,omitempty"`
	Group       []string                `json:"group" yaml:"group"`
	Version     int                     `json:"version" yaml:"version"`
	Subtitle    string                  `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Description string                  `json:"description" yaml:"description"`
	Defaults    map[string]any          `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Inputs      []string                `json:"inputs" yaml:"inputs"`
	Outputs     []string                `json:"outputs" yaml:"outputs"`
	Credentials []CredentialRequirement `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	Properties  []Property              `json:"properties" yaml:"properties"`
}

// Property finds a property by name.
func (d NodeDescription) Property(name string) (Property, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// CredentialRequirement A credential type a node asks the engine for.
type CredentialRequirement struct {
	Name     string `json:"name" yaml:"name"`
	Required bool   `json:"required" yaml:"required"`
}

// PropertyType editor type of a Property.
type PropertyType string

const (
	PropertyTypeString  PropertyType = "string"
	PropertyTypeNumber  PropertyType = "number"
	PropertyTypeOptions PropertyType = "options"
)

// Property One editable field of a node or a credential type.
type Property struct {
	DisplayName      string           `json:"displayName" yaml:"displayName"`
	Name             string           `json:"name" yaml:"name"`
	Type             PropertyType     `json:"type" yaml:"type"`
	TypeOptions      *TypeOptions     `json:"typeOptions,omitempty" yaml:"typeOptions,omitempty"`
	NoDataExpression bool             `json:"noDataExpression,omitempty" yaml:"noDataExpression,omitempty"`
	Options          []PropertyOption `json:"options,omitempty" yaml:"options,omitempty"`
	Default          any              `json:"default" yaml:"default"`
	Required         bool             `json:"required,omitempty" yaml:"required,omitempty"`
	DisplayOptions   *DisplayOptions  `json:"displayOptions,omitempty" yaml:"displayOptions,omitempty"`
	Description      string           `json:"description,omitempty" yaml:"description,omitempty"`
}

// HasOption reports if value is one of the option values.
func (p Property) HasOption(value string) bool {
	for _, o := range p.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// TypeOptions editor hints.
type TypeOptions struct {
	Password bool `json:"password,omitempty" yaml:"password,omitempty"`
}

// PropertyOption One choice of an options Property.
type PropertyOption struct {
	Name        string `json:"name" yaml:"name"`
	Value       string `json:"value" yaml:"value"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Action      string `json:"action,omitempty" yaml:"action,omitempty"`
}

// DisplayOptions show a Property only when other parameters hold one of the listed values.
type DisplayOptions struct {
	Show map[string][]string `json:"show" yaml:"show"`
}

// CredentialDescription Static schema of a credential type.
type CredentialDescription struct {
	Name             string              `json:"name" yaml:"name"`
	DisplayName      string              `json:"displayName" yaml:"displayName"`
	DocumentationURL string              `json:"documentationUrl,omitempty" yaml:"documentationUrl,omitempty"`
	Properties       []Property          `json:"properties" yaml:"properties"`
	Authenticate     AuthenticateGeneric `json:"authenticate" yaml:"authenticate"`
}

// AuthenticateGeneric declarative rule for injecting credential values into outbound requests.
// Header values are templates, `{{name}}` is replaced by the credential property `name`.
type AuthenticateGeneric struct {
	Type       string                        `json:"type" yaml:"type"`
	Properties AuthenticateGenericProperties `json:"properties" yaml:"properties"`
}

type AuthenticateGenericProperties struct {
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}
