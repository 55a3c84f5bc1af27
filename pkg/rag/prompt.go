package rag

import (
	"strings"

	"ai-docqa-be/pkg/llm"
)

func systemPrompt() string {
	var prompt strings.Builder

	prompt.WriteString("<task>\n")
	prompt.WriteString("You answer questions about the user's uploaded documents.\n")
	prompt.WriteString("</task>\n\n")

	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("1. Base your answer strictly on the context provided\n")
	prompt.WriteString("2. Cite sources by their filename when you use them\n")
	prompt.WriteString("3. For tables, quote the relevant rows and do any arithmetic explicitly\n")
	prompt.WriteString("4. If the context doesn't contain the answer, say so honestly\n")
	prompt.WriteString("5. Keep the answer short and direct\n")
	prompt.WriteString("</guidelines>")

	return prompt.String()
}

func userPrompt(contextText, question string) string {
	var prompt strings.Builder
	prompt.WriteString("Context:\n")
	prompt.WriteString(contextText)
	prompt.WriteString("\n\nQuestion: ")
	prompt.WriteString(strings.TrimSpace(question))
	return prompt.String()
}

// BuildMessages assembles the grounded chat for one question. Prior turns go
// between the system prompt and the question.
func BuildMessages(contextText, question string, history []llm.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt()})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userPrompt(contextText, question)})
	return messages
}
