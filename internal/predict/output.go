package predict

import (
	"sort"
	"strings"
)

// EntrySeparator splits a predicted entry into its file path and symbol name.
const EntrySeparator = "::"

// Prediction is the parsed result of one model inference.
type Prediction struct {
	Prompt  string   `json:"prompt"`
	Raw     string   `json:"raw"`
	Files   []string `json:"files"`
	Entries []string `json:"entries"`
}

// ParseOutput splits raw model output of the form "file::func, file::func, ..." into the sorted,
// deduplicated set of files and the sorted, deduplicated set of "file::func" entries.
//
// Segments without "::" are dropped. A segment with an empty file half is dropped; a segment with
// an empty symbol half still contributes its file but no entry. Neither ever yields an empty name,
// which would match every symbol during verification.
func ParseOutput(text string) (files []string, entries []string) {
	fileSet := make(map[string]struct{})
	entrySet := make(map[string]struct{})

	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		file, name, ok := SplitEntry(part)
		if !ok || file == "" {
			continue
		}
		fileSet[file] = struct{}{}
		if name == "" {
			continue
		}
		entrySet[JoinEntry(file, name)] = struct{}{}
	}

	return sortedKeys(fileSet), sortedKeys(entrySet)
}

// SplitEntry splits "file::name" on the first separator and trims both halves.
func SplitEntry(entry string) (file, name string, ok bool) {
	file, name, ok = strings.Cut(entry, EntrySeparator)
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(file), strings.TrimSpace(name), true
}

// JoinEntry is the inverse of SplitEntry.
func JoinEntry(file, name string) string {
	return file + EntrySeparator + name
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
