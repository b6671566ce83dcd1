package modconfig

import (
	"fmt"
	"regexp"
)

// The legacy modules.ts file exports a list literal of `{ id, from? }`
// records. The generator never executes it; these patterns lift the two
// recognized fields out of each brace-delimited record.
var (
	legacyEntryRe = regexp.MustCompile(`\{[^{}]*\}`)
	legacyIDRe    = regexp.MustCompile(`\bid\s*:\s*['"]([^'"]+)['"]`)
	legacyFromRe  = regexp.MustCompile(`\bfrom\s*:\s*['"]([^'"]*)['"]`)
)

// parseLegacyLiteral extracts module entries from a legacy list literal.
// Records without an id field are skipped.
func parseLegacyLiteral(text string) []Entry {
	var entries []Entry
	for _, obj := range legacyEntryRe.FindAllString(text, -1) {
		idMatch := legacyIDRe.FindStringSubmatch(obj)
		if idMatch == nil {
			continue
		}
		from := ""
		if m := legacyFromRe.FindStringSubmatch(obj); m != nil {
			from = m[1]
		}
		entries = append(entries, Entry{ID: idMatch[1], Source: ParseSource(from)})
	}
	return entries
}

// editLegacyLiteral rewrites the record for id to the app-owned origin,
// preserving every other field of the record and the rest of the file. This
// is a best-effort textual edit; the yaml path gets a structured rewrite.
func editLegacyLiteral(text, id string) (string, error) {
	locs := legacyEntryRe.FindAllStringIndex(text, -1)
	for _, loc := range locs {
		obj := text[loc[0]:loc[1]]
		idMatch := legacyIDRe.FindStringSubmatch(obj)
		if idMatch == nil || idMatch[1] != id {
			continue
		}
		var edited string
		if fromLoc := legacyFromRe.FindStringIndex(obj); fromLoc != nil {
			edited = obj[:fromLoc[0]] + fmt.Sprintf("from: '%s'", AppMarker) + obj[fromLoc[1]:]
		} else {
			idLoc := legacyIDRe.FindStringIndex(obj)
			edited = obj[:idLoc[1]] + fmt.Sprintf(", from: '%s'", AppMarker) + obj[idLoc[1]:]
		}
		return text[:loc[0]] + edited + text[loc[1]:], nil
	}
	return "", fmt.Errorf("no entry for module %q in legacy modules literal", id)
}
