package llm

// PromptTemplate is the fixed instruction pair wrapped around a transcript.
// The defaults mirror the product's summarization instructions; deployments
// override them through configuration, loaded once at startup.
type PromptTemplate struct {
	// System is the system-role instruction.
	System string `json:"system" mapstructure:"system"`
	// UserPrefix is prepended to the rendered transcript in the user message.
	UserPrefix string `json:"user_prefix" mapstructure:"user_prefix"`
}

// DefaultPromptTemplate returns the built-in summarization instructions.
func DefaultPromptTemplate() PromptTemplate {
	return PromptTemplate{
		System:     "你是一个专业的文本摘要助手。请对以下内容进行详细的总结和摘要，保留关键信息，使用中文回复。",
		UserPrefix: "请对以下转录文本进行总结：\n\n",
	}
}

// BuildMessages renders the chat messages for one summarization request. The
// transcript keeps its speaker labels and timestamps so the model can
// attribute statements.
func BuildMessages(req Request) []Message {
	tpl := DefaultPromptTemplate()
	if req.Prompt != nil {
		tpl = *req.Prompt
	}
	return []Message{
		{Role: "system", Content: tpl.System},
		{Role: "user", Content: tpl.UserPrefix + req.Transcript.Text()},
	}
}
