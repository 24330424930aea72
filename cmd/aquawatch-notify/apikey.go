package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aquawatch/notification-service/pkg/apikey"
	"github.com/aquawatch/notification-service/pkg/bcryptutil"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var apikeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an API key and the hash to add to auth.api_key_hashes",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, hash, err := apikey.GenerateKey(apikey.Prefix, bcryptutil.New())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "key:  %s\nhash: %s\n", key, hash)
		return nil
	},
}

func init() {
	apikeyCmd.AddCommand(apikeyGenerateCmd)
}
