package scanner

import (
	"regexp"
	"strings"
)

var (
	subscriberEventRe      = regexp.MustCompile(`\bevent\s*:\s*['"]([^'"]+)['"]`)
	subscriberPersistentRe = regexp.MustCompile(`\bpersistent\s*:\s*(true|false)`)
	queueNameRe            = regexp.MustCompile(`export\s+const\s+queueName\s*=\s*['"]([^'"]+)['"]`)
)

// workersCapability is the static manifest declaration that skips per-file
// queue-export probing.
const workersCapability = "workers"

// scanSubscribers collects event subscriber entries from subscribers/**.
// The subscribed event and persistence flag are lifted from the file's
// config literal; files without an event contribute nothing.
func (s *Scanner) scanSubscribers(m *Module) {
	files := s.layeredFiles(m, "subscribers")
	for _, rel := range sortedKeys(files) {
		if !strings.HasSuffix(rel, ".ts") {
			continue
		}
		ref := files[rel]
		content, ok := s.readFile(m, ref.Abs)
		if !ok {
			continue
		}
		text := string(content)
		eventMatch := subscriberEventRe.FindStringSubmatch(text)
		if eventMatch == nil {
			continue
		}
		persistent := false
		if pm := subscriberPersistentRe.FindStringSubmatch(text); pm != nil {
			persistent = pm[1] == "true"
		}
		m.Subscribers = append(m.Subscribers, Subscriber{
			ID:         m.ID + "/" + trimSourceExt(rel),
			Event:      eventMatch[1],
			Persistent: persistent,
			Import:     s.importPath(m, ref, "subscribers/"+rel),
		})
	}
}

// scanWorkers collects background worker entries from workers/**. A worker
// file is included only when a queue-naming export is confirmed. The check
// is two-phase: a workers capability declared in the manifest admits every
// file without opening it, with queue names derived from the path slug;
// only when the manifest is silent does each candidate get a single content
// probe, sequentially, and files without the export are treated as absent.
func (s *Scanner) scanWorkers(m *Module) {
	declared := m.hasCapability(workersCapability)
	files := s.layeredFiles(m, "workers")
	for _, rel := range sortedKeys(files) {
		if !strings.HasSuffix(rel, ".ts") {
			continue
		}
		ref := files[rel]
		var queueName string
		if declared {
			queueName = m.ID + "." + strings.ReplaceAll(trimSourceExt(rel), "/", ".")
		} else {
			content, ok := s.readFile(m, ref.Abs)
			if !ok {
				continue
			}
			qm := queueNameRe.FindStringSubmatch(string(content))
			if qm == nil {
				continue
			}
			queueName = qm[1]
		}
		m.Workers = append(m.Workers, Worker{
			ID:        m.ID + "/" + trimSourceExt(rel),
			QueueName: queueName,
			Import:    s.importPath(m, ref, "workers/"+rel),
		})
	}
}
