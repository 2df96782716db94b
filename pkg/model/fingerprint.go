package model

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint computes a short content hash of the model's structure:
// workload types, names, tick rates, children, config/input seed
// values, and connections. Two models built from the same declarative
// source produce the same fingerprint regardless of build-time map
// iteration order, which makes it useful for diagnosing "did the
// deployed model actually change" questions without diffing full YAML.
//
// This is a diagnostic aid, not a security digest: it is sized and
// tuned for cheap equality comparison, not for resisting a deliberate
// collision attempt.
func (m *Model) Fingerprint() (string, error) {
	if m.root == nil {
		return "", fmt.Errorf("model: cannot fingerprint before the root workload is set")
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("model: fingerprint: %w", err)
	}

	var walk func(seed *WorkloadSeed)
	walk = func(seed *WorkloadSeed) {
		fmt.Fprintf(h, "workload|%s|%s|%g\n", seed.TypeName, seed.Name, seed.TickRateHz)
		writeSortedMap(h, "config", seed.Config)
		writeSortedMap(h, "inputs", seed.Inputs)
		for _, child := range seed.Children {
			walk(child)
		}
	}
	walk(m.root)

	conns := append([]DataConnectionSeed(nil), m.connections...)
	sort.Slice(conns, func(i, j int) bool { return conns[i].DestFieldPath < conns[j].DestFieldPath })
	for _, c := range conns {
		fmt.Fprintf(h, "connect|%s|%s\n", c.SourceFieldPath, c.DestFieldPath)
	}

	remotes := append([]*RemoteModelSeed(nil), m.remoteModels...)
	sort.Slice(remotes, func(i, j int) bool { return remotes[i].ModelName < remotes[j].ModelName })
	for _, rm := range remotes {
		fmt.Fprintf(h, "remote|%s|%s|%s\n", rm.ModelName, rm.Mode, rm.CommsChannel)
		rconns := append([]DataConnectionSeed(nil), rm.Connections...)
		sort.Slice(rconns, func(i, j int) bool { return rconns[i].DestFieldPath < rconns[j].DestFieldPath })
		for _, c := range rconns {
			fmt.Fprintf(h, "remote-connect|%s|%s\n", c.SourceFieldPath, c.DestFieldPath)
		}
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func writeSortedMap(w interface{ Write([]byte) (int, error) }, label string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s.%s=%s\n", label, k, m[k])
	}
	w.Write([]byte(b.String()))
}
