package main

import (
	"fmt"
	"io"
	"strings"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/entity"

	"github.com/fatih/color"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	faint   = color.New(color.Faint)
)

func statusColor(status entity.DocumentStatus) *color.Color {
	switch status {
	case entity.DocumentStatusProcessed:
		return color.New(color.FgGreen)
	case entity.DocumentStatusPartiallyProcessed, entity.DocumentStatusCancelled:
		return color.New(color.FgYellow)
	case entity.DocumentStatusFailed:
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

func printDocument(w io.Writer, doc *entity.Document) {
	line := fmt.Sprintf("%-20s %d chunks", doc.Status, doc.ChunkCount)
	statusColor(doc.Status).Fprintf(w, "%s  %s", doc.Filename, line)
	if doc.ErrorMessage != "" {
		faint.Fprintf(w, "  (%s)", doc.ErrorMessage)
	}
	fmt.Fprintln(w)
}

func printAnswer(w io.Writer, res *dto.AskResponse) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, res.Reply.Chat)
	fmt.Fprintln(w)
	if len(res.Reply.Sources) > 0 {
		faint.Fprintf(w, "sources: %s", strings.Join(res.Reply.Sources, ", "))
		if res.Reply.RelevanceScore != nil {
			faint.Fprintf(w, "  relevance: %.2f", *res.Reply.RelevanceScore)
		}
		fmt.Fprintln(w)
	}
	if res.UsedFallback {
		faint.Fprintln(w, "(extractive answer)")
	}
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
