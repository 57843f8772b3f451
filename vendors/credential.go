package vendors

import "github.com/taoxee/scribeflow/errors"

// Credential is the per-request credential field set supplied by the caller.
// It lives only for the duration of one pipeline run.
type Credential map[string]string

// Get returns the value of a credential field, or "".
func (c Credential) Get(key string) string {
	return c[key]
}

// Validate checks the credential against a vendor's schema. Every
// non-optional field must be present and non-empty; validation failure is an
// AUTH_FAILED error so adapters fail closed before building any request.
func (c Credential) Validate(schema Schema) error {
	for _, f := range schema.Fields {
		if f.Optional {
			continue
		}
		if c[f.Key] == "" {
			return errors.MissingCredential(schema.ID, f.Key)
		}
	}
	return nil
}

// ValidateFor resolves the vendor schema and validates in one step.
func ValidateFor(vendorID string, cap Capability, cred Credential) error {
	schema, ok := Lookup(vendorID)
	if !ok {
		return errors.InvalidInput("unknown vendor: " + vendorID)
	}
	if !Supports(vendorID, cap) {
		return errors.InvalidInput("vendor " + vendorID + " does not support " + string(cap))
	}
	return cred.Validate(schema)
}
