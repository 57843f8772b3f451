// Package vendors holds the static vendor catalog: which vendors exist,
// which capabilities they offer, and which credential fields each one needs.
// The catalog is immutable process-wide configuration; credentials themselves
// are supplied by the caller per request and never persisted.
package vendors

// Capability tags what a vendor can do.
type Capability string

const (
	// CapabilityASR marks a speech-recognition vendor.
	CapabilityASR Capability = "ASR"
	// CapabilityLLM marks a completion/summarization vendor.
	CapabilityLLM Capability = "LLM"
)

// Vendor ids. These are the stable identifiers used in cache keys, task
// records, and API requests.
const (
	OpenAI        = "openai"
	Groq          = "groq"
	Deepgram      = "deepgram"
	ElevenLabs    = "elevenlabs"
	Tencent       = "tencent"
	Xfyun         = "xfyun"
	Zhipu         = "zhipu"
	Aliyun        = "aliyun"
	Minimax       = "minimax"
	MinimaxGlobal = "minimax-global"
)

// Field describes one credential field in a vendor's schema. Secret is a
// display hint for callers rendering input forms, not a security boundary.
type Field struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Secret      bool   `json:"secret"`
}

// Schema is the ordered credential field set plus capabilities of one vendor.
type Schema struct {
	ID           string       `json:"id"`
	Label        string       `json:"label"`
	Capabilities []Capability `json:"capabilities"`
	Fields       []Field      `json:"fields"`
}

// Catalog lists every supported vendor in stable order.
func Catalog() []Schema {
	return catalog
}

// Lookup returns the schema for a vendor id.
func Lookup(id string) (Schema, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Schema{}, false
}

// Supports reports whether the vendor offers the capability.
func Supports(id string, cap Capability) bool {
	s, ok := Lookup(id)
	if !ok {
		return false
	}
	for _, c := range s.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

var catalog = []Schema{
	{
		ID: OpenAI, Label: "OpenAI",
		Capabilities: []Capability{CapabilityASR, CapabilityLLM},
		Fields: []Field{
			{Key: "api_key", Label: "API Key", Placeholder: "sk-xxxxxxxx", Secret: true},
		},
	},
	{
		ID: Groq, Label: "Groq",
		Capabilities: []Capability{CapabilityASR, CapabilityLLM},
		Fields: []Field{
			{Key: "api_key", Label: "API Key", Placeholder: "gsk_xxxxxxxx", Secret: true},
		},
	},
	{
		ID: Deepgram, Label: "Deepgram",
		Capabilities: []Capability{CapabilityASR},
		Fields: []Field{
			{Key: "api_key", Label: "API Key", Placeholder: "xxxxxxxx", Secret: true},
		},
	},
	{
		ID: ElevenLabs, Label: "ElevenLabs",
		Capabilities: []Capability{CapabilityASR},
		Fields: []Field{
			{Key: "api_key", Label: "Key", Placeholder: "xi-xxxxxxxx", Secret: true},
		},
	},
	{
		ID: Tencent, Label: "Tencent Cloud",
		Capabilities: []Capability{CapabilityASR, CapabilityLLM},
		Fields: []Field{
			{Key: "appid", Label: "AppId", Placeholder: "1400xxxxxx", Secret: false},
			{Key: "secret_id", Label: "SecretId", Placeholder: "AKIDxxxxxxxx", Secret: true},
			{Key: "secret_key", Label: "SecretKey", Placeholder: "xxxxxxxx", Secret: true},
		},
	},
	{
		ID: Xfyun, Label: "iFlytek",
		Capabilities: []Capability{CapabilityASR},
		Fields: []Field{
			{Key: "appid", Label: "AppId", Placeholder: "xxxxxxxx", Secret: false},
			{Key: "access_key", Label: "AccessKey", Placeholder: "xxxxxxxx", Secret: true},
			{Key: "access_secret", Label: "AccessSecret", Placeholder: "xxxxxxxx", Secret: true},
		},
	},
	{
		ID: Zhipu, Label: "Zhipu",
		Capabilities: []Capability{CapabilityLLM},
		Fields: []Field{
			{Key: "api_key", Label: "API Key", Placeholder: "xxxxxxxx.xxxxxxxx", Secret: true},
		},
	},
	{
		ID: Aliyun, Label: "Aliyun",
		Capabilities: []Capability{CapabilityLLM},
		Fields: []Field{
			{Key: "api_key", Label: "API Key", Placeholder: "sk-xxxxxxxx", Secret: true},
			{Key: "url", Label: "Endpoint URL", Placeholder: "https://dashscope.aliyuncs.com/compatible-mode/v1", Optional: true, Secret: false},
		},
	},
	{
		ID: Minimax, Label: "Minimax (CN)",
		Capabilities: []Capability{CapabilityLLM},
		Fields: []Field{
			{Key: "api_key", Label: "API Key", Placeholder: "xxxxxxxx", Secret: true},
			{Key: "group_id", Label: "Group ID", Placeholder: "xxxxxxxx", Optional: true, Secret: false},
		},
	},
	{
		ID: MinimaxGlobal, Label: "Minimax (Global)",
		Capabilities: []Capability{CapabilityLLM},
		Fields: []Field{
			{Key: "api_key", Label: "API Key", Placeholder: "xxxxxxxx", Secret: true},
			{Key: "group_id", Label: "Group ID", Placeholder: "xxxxxxxx", Optional: true, Secret: false},
		},
	},
}
