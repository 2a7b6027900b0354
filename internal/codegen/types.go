package codegen

import (
	"fmt"
	"strings"
	"unicode"
)

// provenanceColumns lead every generated table; argument columns must not reuse them.
var provenanceColumns = map[string]struct{}{
	"chain_id":         {},
	"block_number":     {},
	"tx_hash":          {},
	"log_index":        {},
	"contract_address": {},
}

// sqlKeywords are argument names that would need quoting as column names.
var sqlKeywords = map[string]struct{}{
	"order": {}, "group": {}, "index": {}, "key": {}, "user": {}, "select": {},
	"where": {}, "limit": {}, "offset": {}, "table": {}, "check": {}, "default": {},
}

// ColumnName converts an event argument name to a column name.
// Examples: "from" -> "from_address", "tokenId" -> "token_id", "index" -> "arg_index"
func ColumnName(argName string) string {
	snake := ToSnakeCase(argName)

	addressFields := []string{"from", "to", "owner", "spender", "sender", "recipient"}
	for _, field := range addressFields {
		if snake == field || strings.HasSuffix(snake, "_"+field) {
			return snake + "_address"
		}
	}

	if _, reserved := sqlKeywords[snake]; reserved {
		return "arg_" + snake
	}
	if _, reserved := provenanceColumns[snake]; reserved {
		return "arg_" + snake
	}

	return snake
}

// TableName names the table of event under the handler prefix, e.g. ("erc721", "Transfer") -> "erc721_transfers".
func TableName(prefix, event string) string {
	return fmt.Sprintf("%s_%s", prefix, Pluralize(ToSnakeCase(event)))
}

// PackageName derives a Go package name from a handler name.
func PackageName(handler string) string {
	return strings.ReplaceAll(handler, "_", "")
}

// ToSnakeCase converts a string from camelCase or PascalCase to snake_case.
// Runs of capitals stay together: "NFTMinted" -> "nft_minted".
func ToSnakeCase(s string) string {
	runes := []rune(s)
	result := make([]rune, 0, len(runes)*2)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				result = append(result, '_')
			}
		}
		result = append(result, unicode.ToLower(r))
	}

	return string(result)
}

// Pluralize returns a simple pluralized form of a word.
func Pluralize(word string) string {
	if strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") ||
		strings.HasSuffix(word, "z") || strings.HasSuffix(word, "ch") ||
		strings.HasSuffix(word, "sh") {
		return word + "es"
	}
	if strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(rune(word[len(word)-2])) {
		return word[:len(word)-1] + "ies"
	}

	return word + "s"
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}
