package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MarcGrol/poststudio/lib/myhttpclient"
	"github.com/MarcGrol/poststudio/lib/mystore"
	"github.com/MarcGrol/poststudio/lib/mytime"
	"github.com/MarcGrol/poststudio/services/oauth/handoff"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
	"github.com/MarcGrol/poststudio/services/oauth/tokenstore"
)

var tokenFlags struct {
	server     string
	store      string
	redisAddr  string
	landingURL string
	credential string
	page       string
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Import and use stored credentials",
	Long: `Imports the credential carried by a landing url into a token store and prints a valid access token,
refreshing it through the server when it is about to expire. Use a redis store to keep credentials between runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cmd.Context()
		nower := mytime.RealNower{}

		credentials, cleanup, err := mystore.New[oauthmodel.TokenSet](c, mystore.Config{
			Type: mystore.ParseStoreType(tokenFlags.store),
			Redis: mystore.RedisOptions{
				Addr: tokenFlags.redisAddr,
			},
		}, "credentials", nower)
		if err != nil {
			return fmt.Errorf("error creating credential store: %w", err)
		}
		defer cleanup()

		refresher := tokenstore.NewHTTPRefresher(tokenFlags.server, myhttpclient.New(10*time.Second), nower)
		store := tokenstore.New(credentials, refresher, nower)

		credentialID := tokenFlags.credential
		if tokenFlags.landingURL != "" {
			tokenSet, cleanURL, err := handoff.ConsumeFromURL(handoff.Base64JSONCodec{}, tokenFlags.landingURL)
			if err != nil {
				return fmt.Errorf("error reading landing url: %w", err)
			}
			err = store.Put(c, tokenSet)
			if err != nil {
				return fmt.Errorf("error storing credential: %w", err)
			}
			credentialID = tokenSet.CredentialID()
			fmt.Fprintf(cmd.ErrOrStderr(), "Imported %s, landing url without payload: %s\n", credentialID, cleanURL)
		}

		if credentialID == "" {
			all, err := store.List(c)
			if err != nil {
				return fmt.Errorf("error listing credentials: %w", err)
			}
			for _, tokenSet := range all {
				fmt.Fprintln(cmd.OutOrStdout(), tokenSet.CredentialID())
			}
			return nil
		}

		tokenSet, err := store.GetValidToken(c, credentialID)
		if err != nil {
			return fmt.Errorf("error getting token for %s: %w", credentialID, err)
		}

		var result any = tokenSet
		if tokenFlags.page != "" {
			var selector tokenstore.PageSelector = tokenstore.PageByID{ID: tokenFlags.page}
			if tokenFlags.page == "first" {
				selector = tokenstore.FirstPage{}
			}
			result, err = store.GetPageToken(c, credentialID, selector)
			if err != nil {
				return fmt.Errorf("error getting page token for %s: %w", credentialID, err)
			}
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshalling result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.server, "server", "http://localhost:8080", "base url of the server used for refreshing")
	tokenCmd.Flags().StringVar(&tokenFlags.store, "store", "memory", "credential store: memory or redis")
	tokenCmd.Flags().StringVar(&tokenFlags.redisAddr, "redis-addr", "localhost:6379", "redis address when --store=redis")
	tokenCmd.Flags().StringVar(&tokenFlags.landingURL, "landing-url", "", "landing url with a handoff payload to import")
	tokenCmd.Flags().StringVar(&tokenFlags.credential, "credential", "", "credential id, as provider:profileId")
	tokenCmd.Flags().StringVar(&tokenFlags.page, "page", "", "page id, or \"first\", to print a page token instead")

	rootCmd.AddCommand(tokenCmd)
}
