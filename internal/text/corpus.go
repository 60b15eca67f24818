package text

import (
	"strings"

	"finrag/features/transaction"
)

const blockSeparator = "\n-------------------------\n"

// BuildCorpus renders records as labelled plain-text blocks, in input order.
func BuildCorpus(records []transaction.Transaction) string {
	blocks := make([]string, len(records))
	for i, r := range records {
		blocks[i] = block(r)
	}
	return strings.Join(blocks, blockSeparator)
}

func block(r transaction.Transaction) string {
	desc := r.Description
	if desc == "" {
		desc = "none"
	}

	var sb strings.Builder
	sb.WriteString("\nDate: ")
	sb.WriteString(r.Date.UTC().Format("2006-01-02"))
	sb.WriteString("\nTitle: ")
	sb.WriteString(r.Title)
	sb.WriteString("\nAmount: ")
	sb.WriteString(r.Amount.String())
	sb.WriteString("\nType: ")
	sb.WriteString(string(r.Type))
	sb.WriteString("\nCategory: ")
	sb.WriteString(r.Category)
	sb.WriteString("\nDescription: ")
	sb.WriteString(desc)
	sb.WriteString("\n")
	return sb.String()
}
