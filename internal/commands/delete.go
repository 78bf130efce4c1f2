package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/auditlog"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/store"
)

func newDeleteCommand() *cobra.Command {
	var providerCode string
	var kind string
	var note string

	cmd := &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Soft-delete a record so future runs ignore it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return runDelete(e, providerCode, kind, args[0], note)
		},
	}

	cmd.Flags().StringVar(&providerCode, "provider", "", "provider code (required)")
	cmd.Flags().StringVar(&kind, "kind", "", "record kind: ledger, sales, receivables or bank (required)")
	cmd.Flags().StringVar(&note, "note", "", "free-text note recorded in the audit log")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

func runDelete(e *env, providerCode, kind, rawID, note string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}
	p := model.Provider(strings.ToUpper(providerCode))

	st := store.New(e.dir)
	switch kind {
	case "ledger":
		err = st.SoftDeleteLedger(p, id)
	case "sales":
		err = st.SoftDeleteSale(p, id)
	case "receivables":
		err = st.SoftDeleteReceivable(p, id)
	case "bank":
		err = st.SoftDeleteBank(p, id)
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return err
	}

	entry := auditlog.Entry{
		Timestamp: time.Now().UTC(),
		Action:    auditlog.ActionSoftDelete,
		Provider:  string(p),
		Note:      fmt.Sprintf("%s %s %s", kind, id, note),
	}
	if err := auditlog.Append(e.dir, []auditlog.Entry{entry}); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}

	fmt.Printf("Deleted %s record %s\n", kind, id)
	return nil
}
