package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docchain/internal/config"
	"docchain/internal/modules/aadhaar/domain"
	"docchain/internal/modules/shared/infrastructure/database"
)

// ownerStore 所有者テーブルの管理操作
type ownerStore interface {
	CreateSchema(ctx context.Context) error
	Save(ctx context.Context, owner *domain.Owner) error
	Close() error
}

// openOwnerStore テストで差し替え可能なストアの生成
var openOwnerStore = func(cfg *config.MySQLConfig) (ownerStore, error) {
	return database.NewBunAadhaarRepository(cfg)
}

var ownersAddFlags struct {
	name string
	dob  string
}

var ownersCmd = &cobra.Command{
	Use:   "owners",
	Short: "Manage the aadhaar lookup table",
}

var ownersInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the aadhaar table if it does not exist",
	Args:  cobra.NoArgs,
	RunE:  runOwnersInit,
}

var ownersAddCmd = &cobra.Command{
	Use:   "add <aadhaar-number>",
	Short: "Insert or update an owner record",
	Args:  cobra.ExactArgs(1),
	RunE:  runOwnersAdd,
}

func init() {
	f := ownersAddCmd.Flags()
	f.StringVar(&ownersAddFlags.name, "name", "", "owner name (required)")
	f.StringVar(&ownersAddFlags.dob, "dob", "", "date of birth, YYYY-MM-DD (required)")
	_ = ownersAddCmd.MarkFlagRequired("name")
	_ = ownersAddCmd.MarkFlagRequired("dob")

	ownersCmd.AddCommand(ownersInitCmd)
	ownersCmd.AddCommand(ownersAddCmd)
}

func withOwnerStore(fn func(store ownerStore) error) error {
	cfg := loadConfig(rootFlags.configPath)
	store, err := openOwnerStore(&cfg.MySQL)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()
	return fn(store)
}

func runOwnersInit(cmd *cobra.Command, _ []string) error {
	return withOwnerStore(func(store ownerStore) error {
		if err := store.CreateSchema(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "aadhaar table ready")
		return nil
	})
}

func runOwnersAdd(cmd *cobra.Command, args []string) error {
	number := args[0]
	if !domain.IsValidAadhaarNumber(number) {
		return fmt.Errorf("invalid aadhaar number %q: want 12 digits", number)
	}
	dob, err := time.Parse(time.DateOnly, ownersAddFlags.dob)
	if err != nil {
		return fmt.Errorf("invalid --dob: %w", err)
	}

	owner := &domain.Owner{AadhaarNumber: number, Name: ownersAddFlags.name, DateOfBirth: dob}
	return withOwnerStore(func(store ownerStore) error {
		if err := store.Save(cmd.Context(), owner); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", domain.MaskNumber(number))
		return nil
	})
}
