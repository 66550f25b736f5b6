// Package screening expands a screening results file into the set of
// structure/reflections pairs a batch run covers. Two formats are supported:
// a plain CSV with PDB and MTZ columns, and a SoakDB SQLite database as
// produced by the XChem pipeline.
package screening

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/vk/stompgen/internal/ctxlog"
)

// Entry is one crystal dataset: a structure file and its reflections file.
type Entry struct {
	ID              string
	StructurePath   string
	ReflectionsPath string
}

// acceptedOutcomes are the SoakDB refinement states considered good enough
// to debias.
var acceptedOutcomes = map[string]struct{}{
	"4 - CompChem ready":   {},
	"5 - Deposition ready": {},
	"6 - Deposited":        {},
}

// Load reads a screening file and returns its usable crystal entries,
// dispatching on the file extension.
func Load(ctx context.Context, path string) ([]Entry, error) {
	switch filepath.Ext(path) {
	case ".csv":
		return loadCSV(ctx, path)
	case ".sqlite":
		return loadSoakDB(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported screening file extension %q (want .csv or .sqlite)", filepath.Ext(path))
	}
}

// loadCSV reads a CSV with header columns PDB and MTZ. The crystal ID is the
// structure file's base name without extension.
func loadCSV(ctx context.Context, path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open screening file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse screening CSV %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("screening CSV %s is empty", path)
	}

	pdbCol, mtzCol := -1, -1
	for i, name := range records[0] {
		switch strings.TrimSpace(name) {
		case "PDB":
			pdbCol = i
		case "MTZ":
			mtzCol = i
		}
	}
	if pdbCol < 0 || mtzCol < 0 {
		return nil, fmt.Errorf("screening CSV %s must have PDB and MTZ columns", path)
	}

	entries := make([]Entry, 0, len(records)-1)
	for _, record := range records[1:] {
		pdb := strings.TrimSpace(record[pdbCol])
		mtz := strings.TrimSpace(record[mtzCol])
		if pdb == "" || mtz == "" {
			continue
		}
		entries = append(entries, Entry{
			ID:              stem(pdb),
			StructurePath:   pdb,
			ReflectionsPath: mtz,
		})
	}

	ctxlog.FromContext(ctx).Debug("Screening CSV loaded.", "path", path, "entries", len(entries))
	return entries, nil
}

// loadSoakDB queries a SoakDB database for datasets whose refinement outcome
// is accepted, preferring the latest refinement pair and falling back to the
// Dimple pair when the refinement columns are incomplete.
func loadSoakDB(ctx context.Context, path string) ([]Entry, error) {
	logger := ctxlog.FromContext(ctx)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SoakDB %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT CrystalName,
		       COALESCE(RefinementOutcome, ''),
		       COALESCE(RefinementPDB_latest, ''),
		       COALESCE(RefinementMTZ_latest, ''),
		       COALESCE(DimplePathToPDB, ''),
		       COALESCE(DimplePathToMTZ, '')
		FROM mainTable`)
	if err != nil {
		return nil, fmt.Errorf("failed to query SoakDB %s: %w", path, err)
	}
	defer rows.Close()

	var entries []Entry
	skipped := 0
	for rows.Next() {
		var name, outcome, refPDB, refMTZ, dimplePDB, dimpleMTZ string
		if err := rows.Scan(&name, &outcome, &refPDB, &refMTZ, &dimplePDB, &dimpleMTZ); err != nil {
			return nil, fmt.Errorf("failed to read SoakDB row: %w", err)
		}
		if _, ok := acceptedOutcomes[outcome]; !ok {
			continue
		}

		entry := Entry{ID: name, StructurePath: refPDB, ReflectionsPath: refMTZ}
		if entry.StructurePath == "" || entry.ReflectionsPath == "" {
			entry.StructurePath, entry.ReflectionsPath = dimplePDB, dimpleMTZ
		}
		if entry.StructurePath == "" || entry.ReflectionsPath == "" {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read SoakDB %s: %w", path, err)
	}

	if skipped > 0 {
		logger.Warn("Skipped datasets without a complete PDB/MTZ pair.", "count", skipped)
	}
	logger.Debug("SoakDB screening loaded.", "path", path, "entries", len(entries))
	return entries, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
