package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/ingest"
	"github.com/concilia-dev/concilia/internal/store"
)

func newImportCommand() *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load CSV exports from the import directory into the record store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return runImport(e, keep)
		},
	}

	cmd.Flags().BoolVar(&keep, "keep", false, "leave loaded files in import/ instead of moving them to processed/")

	return cmd
}

func runImport(e *env, keep bool) error {
	files, err := ingest.Scan(e.dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	st := store.New(e.dir)
	for _, fi := range files {
		added, total, err := importFile(st, fi)
		if err != nil {
			return fmt.Errorf("importing %s: %w", fi.Name, err)
		}

		e.log.Info().
			Str("file", fi.Name).
			Str("provider", string(fi.Provider)).
			Str("kind", string(fi.Kind)).
			Int("added", added).
			Int("rows", total).
			Msg("imported")

		if !keep {
			if err := ingest.MarkProcessed(e.dir, fi.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// importFile parses one export and adds its rows, relying on the store to
// reject duplicates so reruns are safe. Returns rows added and rows parsed.
func importFile(st *store.Store, fi ingest.FileInfo) (int, int, error) {
	f, err := os.Open(fi.Path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	switch fi.Kind {
	case ingest.KindLedger:
		entries, err := ingest.ParseLedger(f, fi.Provider)
		if err != nil {
			return 0, 0, err
		}
		added, err := st.AddLedger(fi.Provider, entries)
		return added, len(entries), err
	case ingest.KindSales:
		entries, err := ingest.ParseSales(f, fi.Provider)
		if err != nil {
			return 0, 0, err
		}
		added, err := st.AddSales(fi.Provider, entries)
		return added, len(entries), err
	case ingest.KindReceivables:
		entries, err := ingest.ParseReceivables(f, fi.Provider)
		if err != nil {
			return 0, 0, err
		}
		added, err := st.AddReceivables(fi.Provider, entries)
		return added, len(entries), err
	case ingest.KindBank:
		entries, err := ingest.ParseBank(f, fi.Provider)
		if err != nil {
			return 0, 0, err
		}
		added, err := st.AddBank(fi.Provider, entries)
		return added, len(entries), err
	}
	return 0, 0, fmt.Errorf("unknown kind %q", fi.Kind)
}
