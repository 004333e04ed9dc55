package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var secretKeys = map[string]bool{
	"jwt_secret":    true,
	"github_token":  true,
	"twitter_token": true,
	"discord_token": true,
	"mongo_url":     true,
	"redis_url":     true,
}

func newConfigCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file, _ := cmd.Flags().GetString(flagConfig); file != "" {
				v.SetConfigFile(file)
				if err := v.ReadInConfig(); err != nil {
					return err
				}
			}
			settings := v.AllSettings()
			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%s = %s\n", k, mask(k, fmt.Sprint(settings[k])))
			}
			return nil
		},
	}
}

func mask(key, value string) string {
	if !secretKeys[strings.ToLower(key)] || value == "" {
		return value
	}
	return "****"
}
