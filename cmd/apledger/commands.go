package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"apledger/internal/cli"
	"apledger/internal/core"
	"apledger/internal/export"
	"apledger/internal/importer"
	"apledger/internal/services"
	"apledger/internal/session"
)

var (
	addFlags struct {
		date      string
		vendor    string
		currency  string
		amount    string
		rate      string
		recurring bool
	}
	listWindow   windowFlags
	exportWindow windowFlags
	editWindow   windowFlags
	exportOut    string
	editOut      string
	assumeYes    bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a payable; --recurring adds twelve monthly installments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := services.AddInput{
			Vendor:    addFlags.vendor,
			Currency:  addFlags.currency,
			Recurring: addFlags.recurring,
		}
		if addFlags.date == "" {
			in.DueDate = state.payables.Today()
		} else {
			d, err := core.ParseDate(addFlags.date)
			if err != nil {
				return err
			}
			in.DueDate = d
		}
		amount, err := core.ParseAmount(addFlags.amount)
		if err != nil {
			return err
		}
		in.Amount = amount
		if cmd.Flags().Changed("rate") {
			rate, err := core.ParseRate(addFlags.rate)
			if err != nil {
				return err
			}
			in.Rate = decimal.NewNullDecimal(rate)
		}

		created, err := state.payables.Add(cmd.Context(), in)
		if err != nil {
			return err
		}
		cli.PrintSuccess(state.out, fmt.Sprintf("Added %d record(s) for %s, %s KRW each",
			len(created), created[0].Vendor, export.GroupThousands(created[0].Money.Base())))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show payables in the review window, with notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		q, err := listWindow.query()
		if err != nil {
			return err
		}
		ov, err := state.payables.Overview(cmd.Context(), q)
		if err != nil {
			return err
		}
		fmt.Fprintln(state.out, cli.RenderObligations(ov.Records, state.payables.Today()))
		if len(ov.Notes) > 0 {
			fmt.Fprintln(state.out, cli.RenderNotes(ov.Notes))
		}
		return nil
	},
}

var payCmd = &cobra.Command{
	Use:   "pay ID...",
	Short: "Mark pending payables paid",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			paid, err := state.payables.Pay(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("pay %s: %w", id, err)
			}
			cli.PrintSuccess(state.out, fmt.Sprintf("Paid %s %s (%s KRW)",
				paid.DueDate, paid.Vendor, export.GroupThousands(paid.Money.Base())))
		}
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a payable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := state.payables.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		ok, err := cli.Confirm(fmt.Sprintf("Delete %s %s (%s KRW)?", o.DueDate, o.Vendor, export.GroupThousands(o.Money.Base())), assumeYes)
		if err != nil {
			return err
		}
		if !ok {
			cli.PrintInfof(state.out, "Nothing deleted")
			return nil
		}
		if err := state.payables.Remove(cmd.Context(), o.ID); err != nil {
			return err
		}
		cli.PrintSuccess(state.out, "Deleted "+o.ID)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the payables list to an .xlsx or .csv file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		q, err := exportWindow.query()
		if err != nil {
			return err
		}
		doc, err := state.payables.Export(cmd.Context(), q)
		if err != nil {
			return err
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()

		switch strings.ToLower(filepath.Ext(exportOut)) {
		case ".xlsx":
			err = export.WriteXLSX(f, doc)
		case ".csv":
			err = export.WriteCSV(f, doc)
		default:
			err = fmt.Errorf("unsupported export format %q", filepath.Ext(exportOut))
		}
		if err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		cli.PrintSuccess(state.out, fmt.Sprintf("Exported %d row(s), total %s KRW, to %s",
			len(doc.Rows), export.GroupThousands(doc.Total), exportOut))
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Write an editable CSV of the selected payables for reconcile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		q, err := editWindow.query()
		if err != nil {
			return err
		}
		rows, err := state.payables.EditRows(cmd.Context(), q)
		if err != nil {
			return err
		}

		f, err := os.Create(editOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w := csv.NewWriter(f)
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		cli.PrintSuccess(state.out, fmt.Sprintf("Wrote %d row(s) to %s; edit it and run reconcile", len(rows)-1, editOut))
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile FILE",
	Short: "Apply an edited file back onto the ledger by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := importer.FormatOf(args[0])
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		rows, err := importer.ReadRows(f, format)
		if err != nil {
			return err
		}
		n, err := state.payables.Reconcile(cmd.Context(), rows)
		if err != nil {
			return err
		}
		cli.PrintSuccess(state.out, fmt.Sprintf("Reconciled %d record(s)", n))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Add every row of a .csv, .xlsx or .xls file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := state.payables.Import(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cli.PrintSuccess(state.out, fmt.Sprintf("Imported %d record(s)", len(res.Added)))
		if res.Dropped > 0 {
			cli.PrintDropped(state.errOut, "import", res.Dropped)
		}
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:         "passwd",
	Short:       "Print a bcrypt hash for auth.password_hash",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSetup: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		read := session.Prompt(os.Stdin, state.errOut, "Password: ")
		first, err := read()
		if err != nil {
			return err
		}
		second, err := read()
		if err != nil {
			return err
		}
		if first != second {
			return fmt.Errorf("passwords do not match")
		}
		hash, err := session.HashPassword(first)
		if err != nil {
			return err
		}
		fmt.Fprintln(state.out, hash)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addFlags.date, "date", "", "Due date (YYYY-MM-DD, default today)")
	addCmd.Flags().StringVar(&addFlags.vendor, "vendor", "", "Vendor name")
	addCmd.Flags().StringVar(&addFlags.currency, "currency", "KRW", "Currency code")
	addCmd.Flags().StringVar(&addFlags.amount, "amount", "", "Amount in the given currency")
	addCmd.Flags().StringVar(&addFlags.rate, "rate", "", "Exchange rate to KRW (default from currency.rates)")
	addCmd.Flags().BoolVar(&addFlags.recurring, "recurring", false, "Repeat monthly for 12 installments")
	_ = addCmd.MarkFlagRequired("vendor")
	_ = addCmd.MarkFlagRequired("amount")

	listWindow.register(listCmd)
	exportWindow.register(exportCmd)
	editWindow.register(editCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "payables.xlsx", "Output file (.xlsx or .csv)")
	editCmd.Flags().StringVarP(&editOut, "out", "o", "edit.csv", "Output CSV file")

	rmCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete without asking")
}
