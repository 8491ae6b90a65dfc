package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/dcrodman/epchat/internal/core/auth"
	"github.com/dcrodman/epchat/internal/core/data"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Account management tools",
}

var accountAddCmd = &cobra.Command{
	Use:   "add [username] [password]",
	Short: "Registers new accounts in the database",
	Args:  cobra.MaximumNArgs(2),
	RunE:  AccountAddCommand,
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete [username]",
	Short: "Deletes accounts from the database",
	Args:  cobra.MaximumNArgs(1),
	RunE:  AccountDeleteCommand,
}

var accountBanCmd = &cobra.Command{
	Use:   "ban [username]",
	Short: "Bans an account from logging in",
	Args:  cobra.MaximumNArgs(1),
	RunE:  AccountBanCommand,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists registered accounts",
	Args:  cobra.NoArgs,
	RunE:  AccountListCommand,
}

var (
	PermanentFlag bool
	LiftFlag      bool
)

func initDB() (*gorm.DB, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return data.Initialize(config)
}

func AccountAddCommand(cmd *cobra.Command, args []string) error {
	db, err := initDB()
	if err != nil {
		return err
	}
	defer data.Shutdown(db)

	usernameInput, args := popArg(args, "Username")
	// The server compares names in NFC form.
	username := norm.NFC.String(usernameInput)
	password, _ := popArg(args, "Password")
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}

	account, err := auth.CreateAccount(db, username, password)
	if errors.Is(err, auth.ErrUsernameTaken) {
		fmt.Printf("account '%s' already exists; skipping\n", username)
		return nil
	} else if err != nil {
		return fmt.Errorf("error creating account: %w", err)
	}
	fmt.Printf("created account for '%s' (ID: %d)\n", account.Username, account.ID)
	return nil
}

func AccountDeleteCommand(cmd *cobra.Command, args []string) error {
	db, err := initDB()
	if err != nil {
		return err
	}
	defer data.Shutdown(db)

	usernameInput, _ := popArg(args, "Username")
	username := norm.NFC.String(usernameInput)

	if err := auth.DeleteAccount(db, username, PermanentFlag); err != nil {
		return fmt.Errorf("error deleting account '%s': %w", username, err)
	}
	fmt.Println("deleted account")
	return nil
}

func AccountBanCommand(cmd *cobra.Command, args []string) error {
	db, err := initDB()
	if err != nil {
		return err
	}
	defer data.Shutdown(db)

	usernameInput, _ := popArg(args, "Username")
	username := norm.NFC.String(usernameInput)

	if err := auth.BanAccount(db, username, !LiftFlag); err != nil {
		return fmt.Errorf("error updating account '%s': %w", username, err)
	}
	if LiftFlag {
		fmt.Printf("lifted ban on '%s'\n", username)
	} else {
		fmt.Printf("banned '%s'\n", username)
	}
	return nil
}

func AccountListCommand(cmd *cobra.Command, args []string) error {
	db, err := initDB()
	if err != nil {
		return err
	}
	defer data.Shutdown(db)

	accounts, err := data.ListAccounts(db)
	if err != nil {
		return fmt.Errorf("error listing accounts: %w", err)
	}
	for _, account := range accounts {
		status := ""
		if account.Banned {
			status = " (banned)"
		}
		fmt.Printf("%-31s registered %s%s\n", account.Username, account.RegistrationDate.Format("2006-01-02"), status)
	}
	fmt.Printf("%d accounts\n", len(accounts))
	return nil
}

func popArg(args []string, prompt string) (string, []string) {
	if len(args) == 1 {
		return args[0], nil
	} else if len(args) > 1 {
		return args[0], args[1:]
	}

	fmt.Printf("%s: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return scanner.Text(), args
}
