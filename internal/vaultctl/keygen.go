package vaultctl

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/spf13/cobra"
)

// generatedKeys uses the server's JSON config keys so the output can be
// pasted into a config file.
type generatedKeys struct {
	EncryptionKey string `json:"encryption_key"`
	SigningKey    string `json:"signing_key"`
	SecretKey     string `json:"secret_key"`
}

func newKeygenCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print fresh encryption, signing and JWT keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := generateKeys()
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(keys, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(env.Out, string(b))
			return err
		},
	}
}

func generateKeys() (*generatedKeys, error) {
	var out [3]string
	for i := range out {
		k, err := common.MakeRandHexString(cryptox.KeySize)
		if err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		out[i] = k
	}
	return &generatedKeys{EncryptionKey: out[0], SigningKey: out[1], SecretKey: out[2]}, nil
}
