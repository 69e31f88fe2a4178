package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Cohort/internal/config"
	"github.com/shaiso/Cohort/internal/signer"
)

// NewAccountsCmd создаёт группу команд для проверки файлов аккаунтов.
func NewAccountsCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Validate account files",
	}

	cmd.AddCommand(newAccountsCheckCmd(outputFn))

	return cmd
}

func newAccountsCheckCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Check an accounts file: parse keys, derive addresses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			accounts, err := config.LoadAccounts(args[0])
			if err != nil {
				return err
			}

			type checkResult struct {
				Label   string `json:"label,omitempty"`
				Address string `json:"address"`
				Derived string `json:"derived"`
				Proxy   string `json:"proxy,omitempty"`
				Status  string `json:"status"`
			}

			headers := []string{"LABEL", "ADDRESS", "DERIVED", "PROXY", "STATUS"}
			rows := make([][]string, 0, len(accounts))
			results := make([]checkResult, 0, len(accounts))
			broken := 0

			for i := range accounts {
				acc := &accounts[i]
				res := checkResult{Label: acc.Label, Address: acc.Address}

				if acc.HasProxy() {
					res.Proxy = acc.Proxy.String()
				}

				sg, err := signer.New(acc.PrivateKey)
				switch {
				case err != nil:
					res.Status = "BROKEN_KEY"
					broken++
				default:
					res.Derived = sg.Address()
					if acc.Address != "" && !equalAddress(acc.Address, res.Derived) {
						res.Status = "ADDRESS_MISMATCH"
						broken++
					} else {
						res.Status = "OK"
					}
				}

				rows = append(rows, []string{res.Label, res.Address, res.Derived, res.Proxy, res.Status})
				results = append(results, res)
			}

			out.Print(headers, rows, results)

			if broken > 0 {
				return fmt.Errorf("%d of %d accounts failed validation", broken, len(accounts))
			}
			out.Success(fmt.Sprintf("%d accounts OK", len(accounts)))
			return nil
		},
	}

	return cmd
}

// equalAddress сравнивает адреса без учёта регистра checksum'а.
func equalAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
