package main

// The CLI mirrors the server's JSON and does not import the server packages.

type attribute struct {
	ID                    uint     `json:"id"`
	Name                  string   `json:"name"`
	DataType              string   `json:"dataType"`
	Unit                  string   `json:"unit,omitempty"`
	IsRequired            bool     `json:"isRequired"`
	CompatibilityCritical bool     `json:"compatibilityCritical"`
	EnumOptions           []string `json:"enumOptions,omitempty"`
}

type attributeList struct {
	Attributes []attribute `json:"attributes"`
	Size       int         `json:"size"`
}

type componentType struct {
	ID                      uint        `json:"id"`
	Name                    string      `json:"name"`
	Slug                    string      `json:"slug"`
	Required                bool        `json:"required"`
	Order                   int         `json:"order"`
	CompatibilityAttributes []attribute `json:"compatibilityAttributes,omitempty"`
}

type componentTypeList struct {
	ComponentTypes []componentType `json:"componentTypes"`
	Size           int             `json:"size"`
}

type rule struct {
	ID                uint   `json:"id"`
	SourceTypeID      uint   `json:"sourceTypeId"`
	SourceAttributeID uint   `json:"sourceAttributeId"`
	TargetTypeID      uint   `json:"targetTypeId"`
	TargetAttributeID uint   `json:"targetAttributeId"`
	RuleType          string `json:"ruleType"`
	SourceValue       string `json:"sourceValue,omitempty"`
	TargetValue       string `json:"targetValue,omitempty"`
	Description       string `json:"description,omitempty"`
}

type ruleList struct {
	Rules []rule `json:"rules"`
	Size  int    `json:"size"`
}

// buildRequest is the body of a check or submit. Build files may be JSON or
// YAML.
type buildRequest struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description"`
	Components  []componentInput `json:"components" yaml:"components"`
}

type componentInput struct {
	ComponentTypeID uint `json:"component_type_id" yaml:"component_type_id"`
	ProductID       uint `json:"product_id" yaml:"product_id"`
}

type buildComponent struct {
	ComponentTypeID uint `json:"componentTypeId"`
	ProductID       uint `json:"productId"`
}

type build struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	TotalPrice  string           `json:"totalPrice"`
	Components  []buildComponent `json:"components"`
	CreatedAt   string           `json:"createdAt"`
}

type buildList struct {
	Builds []build `json:"builds"`
	Size   int     `json:"size"`
}

type report struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

type buildResult struct {
	Build         *build `json:"build,omitempty"`
	TotalPrice    string `json:"totalPrice"`
	Compatibility report `json:"compatibility"`
}

type job struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	RequestedBy  string `json:"requestedBy"`
	RequestedAt  string `json:"requestedAt"`
	State        string `json:"state"`
	Message      string `json:"message,omitempty"`
	AttemptCount int    `json:"attemptCount"`
	LastError    string `json:"lastError,omitempty"`
	Affected     int    `json:"affected,omitempty"`
}

type jobList struct {
	Jobs          []job  `json:"jobs"`
	NextPageToken string `json:"nextPageToken"`
	TotalSize     int    `json:"totalSize"`
}
