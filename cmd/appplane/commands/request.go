package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
	"github.com/fivetwenty-io/appplane-client/pkg/appclient"
)

var supportedMethods = map[string]struct{}{
	"GET":    {},
	"POST":   {},
	"PUT":    {},
	"PATCH":  {},
	"DELETE": {},
}

// callFlags are the per-call flags shared by request, the method
// shortcuts and list.
type callFlags struct {
	data           string
	dataFile       string
	query          []string
	headers        []string
	idempotencyKey string
}

func (f *callFlags) register(cmd *cobra.Command, withBody bool) {
	cmd.Flags().StringArrayVarP(&f.query, "query", "q", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "header as name:value (repeatable)")

	if withBody {
		cmd.Flags().StringVarP(&f.data, "data", "d", "", "JSON request body")
		cmd.Flags().StringVar(&f.dataFile, "data-file", "", "file holding the JSON request body, - for stdin")
		cmd.Flags().StringVar(&f.idempotencyKey, "idempotency-key", "", "idempotency key for retried writes")
	}
}

// callOptions converts the flags. stdin serves --data-file -.
func (f *callFlags) callOptions(stdin io.Reader) ([]appclient.CallOption, error) {
	var opts []appclient.CallOption

	for _, raw := range f.query {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidQueryParam, raw)
		}

		opts = append(opts, appclient.WithQuery(url.Values{key: {value}}))
	}

	for _, raw := range f.headers {
		name, value, ok := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)

		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidHeader, name)
		}

		opts = append(opts, appclient.WithHeader(name, strings.TrimSpace(value)))
	}

	body, err := f.body(stdin)
	if err != nil {
		return nil, err
	}

	if body != nil {
		opts = append(opts, appclient.WithBody(body))
	}

	if f.idempotencyKey != "" {
		opts = append(opts, appclient.WithIdempotencyKey(f.idempotencyKey))
	}

	return opts, nil
}

func (f *callFlags) body(stdin io.Reader) (json.RawMessage, error) {
	if f.data != "" && f.dataFile != "" {
		return nil, constants.ErrBodyAndFileExclusive
	}

	var data []byte

	switch {
	case f.data != "":
		data = []byte(f.data)
	case f.dataFile == "-":
		read, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading body from stdin: %w", err)
		}

		data = read
	case f.dataFile != "":
		read, err := os.ReadFile(f.dataFile)
		if err != nil {
			return nil, fmt.Errorf("reading body file: %w", err)
		}

		data = read
	default:
		return nil, nil
	}

	if !json.Valid(data) {
		return nil, constants.ErrInvalidBodyJSON
	}

	return json.RawMessage(data), nil
}

func (c *cli) newRequestCommand() *cobra.Command {
	flags := &callFlags{}

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Call the gateway",
		Long:  "Send one request to the gateway and print the response payload",
		Example: `  appplane request GET /widgets -q owner=me
  appplane request POST /widgets -d '{"name":"gear"}' --idempotency-key create-gear`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCall(cmd, args[0], args[1], flags)
		},
	}

	flags.register(cmd, true)

	return cmd
}

func (c *cli) newMethodCommand(method string) *cobra.Command {
	flags := &callFlags{}
	upper := strings.ToUpper(method)

	cmd := &cobra.Command{
		Use:   method + " PATH",
		Short: "Send a " + upper + " request",
		Long:  "Send a " + upper + " request to the gateway and print the response payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCall(cmd, upper, args[0], flags)
		},
	}

	flags.register(cmd, upper != "GET")

	return cmd
}

func (c *cli) runCall(cmd *cobra.Command, method, path string, flags *callFlags) error {
	method = strings.ToUpper(method)
	if _, ok := supportedMethods[method]; !ok {
		return fmt.Errorf("%w: %s", constants.ErrUnsupportedMethod, method)
	}

	opts, err := flags.callOptions(cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	client, release, err := c.newClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	resp, err := client.Request(ctx, method, path, opts...)
	if err != nil {
		return err
	}

	return renderResponse(cmd.OutOrStdout(), c.output(), resp)
}
