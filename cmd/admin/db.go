package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"landguard/internal/claim"
)

// dbCmd queries the claim database directly, for when the server is down.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/claims.sqlite)")
	worldID := fs.String("world", "", "world filter (claims)")
	owner := fs.String("owner", "", "owner uuid filter (claims) or player uuid (player)")
	limit := fs.Int("limit", 50, "result limit")
	_ = fs.Parse(args)

	q := "claims"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "claims.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "claims":
		if *limit <= 0 {
			*limit = 50
		}
		query := `SELECT raw_json FROM claims`
		var conds []string
		var qargs []any
		if strings.TrimSpace(*worldID) != "" {
			conds = append(conds, "world = ?")
			qargs = append(qargs, strings.TrimSpace(*worldID))
		}
		if strings.TrimSpace(*owner) != "" {
			conds = append(conds, "owner = ?")
			qargs = append(qargs, strings.TrimSpace(*owner))
		}
		if len(conds) > 0 {
			query += " WHERE " + strings.Join(conds, " AND ")
		}
		query += " ORDER BY id LIMIT ?"
		qargs = append(qargs, *limit)

		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			var rec claim.ClaimRecord
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				fmt.Fprintln(os.Stderr, "unmarshal:", err)
				os.Exit(1)
			}
			printJSON(rec)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "counts":
		rows, err := db.Query(`SELECT world, COUNT(*) FROM claims GROUP BY world ORDER BY world`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				World  string `json:"world"`
				Claims int    `json:"claims"`
			}
			if err := rows.Scan(&r.World, &r.Claims); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "player":
		if strings.TrimSpace(*owner) == "" {
			fmt.Fprintln(os.Stderr, "missing -owner")
			os.Exit(2)
		}
		var r struct {
			ID            string `json:"id"`
			AccruedBlocks int    `json:"accrued_blocks"`
			BonusBlocks   int    `json:"bonus_blocks"`
			IgnoreClaims  bool   `json:"ignore_claims"`
			ClaimedArea   int    `json:"claimed_area"`
		}
		r.ID = strings.TrimSpace(*owner)
		var ignore int
		row := db.QueryRow(`SELECT accrued_blocks, bonus_blocks, ignore_claims FROM players WHERE id = ?`, r.ID)
		if err := row.Scan(&r.AccruedBlocks, &r.BonusBlocks, &ignore); err != nil {
			if err == sql.ErrNoRows {
				fmt.Fprintln(os.Stderr, "no player record")
				os.Exit(2)
			}
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		r.IgnoreClaims = ignore != 0

		rows, err := db.Query(`SELECT raw_json FROM claims WHERE owner = ? AND parent_id = 0`, r.ID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			var rec claim.ClaimRecord
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				continue
			}
			r.ClaimedArea += (rec.X2 - rec.X1 + 1) * (rec.Z2 - rec.Z1 + 1)
		}
		printJSON(r)

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-world W] [-owner UUID] claims|counts|player")
		os.Exit(2)
	}
}
