package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"landguard/internal/rules"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "stats":
			statsCmd(os.Args[2:])
			return
		case "claims":
			claimsCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin stats|claims|audit|db [flags]")
	os.Exit(2)
}

// auditCmd scans the compressed audit trail offline, newest entries last.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world filter (optional)")
	actor := fs.String("actor", "", "actor uuid filter (optional)")
	kind := fs.String("kind", "", "event/command kind filter (optional)")
	since := fs.String("since", "", "only entries at or after this RFC3339 time (optional)")
	area := fs.String("aabb", "", "position filter: x1,y1,z1:x2,y2,z2 (optional)")
	limit := fs.Int("limit", 100, "result limit (0 for all)")
	_ = fs.Parse(args)

	var sinceTime time.Time
	if strings.TrimSpace(*since) != "" {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*since))
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -since:", err)
			os.Exit(2)
		}
		sinceTime = t
	}

	var min, max [3]int
	hasArea := strings.TrimSpace(*area) != ""
	if hasArea {
		var err error
		min, max, err = parseAABB(*area)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -aabb:", err)
			os.Exit(2)
		}
	}

	entries, err := readAudit(filepath.Join(*dataDir, "audit"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}

	matched := 0
	for _, e := range entries {
		if *worldID != "" && e.World != *worldID {
			continue
		}
		if *actor != "" && e.Actor != *actor {
			continue
		}
		if *kind != "" && e.Kind != *kind {
			continue
		}
		if !sinceTime.IsZero() && e.Time.Before(sinceTime) {
			continue
		}
		if hasArea && !withinAABB(e.Pos, min, max) {
			continue
		}
		printJSON(e)
		matched++
		if *limit > 0 && matched >= *limit {
			break
		}
	}
}

func readAudit(dir string) ([]rules.AuditEntry, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "audit-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]rules.AuditEntry, 0, 1024)
	for _, name := range names {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		sc := bufio.NewScanner(dec)
		sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
		for sc.Scan() {
			var e rules.AuditEntry
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				dec.Close()
				_ = f.Close()
				return nil, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			out = append(out, e)
		}
		if err := sc.Err(); err != nil {
			dec.Close()
			_ = f.Close()
			return nil, err
		}
		dec.Close()
		_ = f.Close()
	}
	return out, nil
}

func withinAABB(pos [3]int, min, max [3]int) bool {
	return pos[0] >= min[0] && pos[0] <= max[0] &&
		pos[1] >= min[1] && pos[1] <= max[1] &&
		pos[2] >= min[2] && pos[2] <= max[2]
}

func parseAABB(s string) (min, max [3]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 3; i++ {
		if a[i] <= b[i] {
			min[i], max[i] = a[i], b[i]
		} else {
			min[i], max[i] = b[i], a[i]
		}
	}
	return min, max, nil
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
