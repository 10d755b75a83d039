package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
	"github.com/hello-xone/xone-explorer-sub000/pkg/explorerclient"
)

const (
	// JSON formatting.
	defaultJSONIndent = 2

	// maxTableColumns bounds the columns of item tables.
	maxTableColumns = 6

	userAgent = "xexplorer-cli"
)

// Common static errors used throughout the commands package.
var (
	ErrInvalidPageCount = errors.New("pages must be at least 1")
	ErrUnknownCommand   = errors.New("unknown browse command")
)

// newClient builds an explorer client from the effective configuration.
func newClient(ctx context.Context) (explorer.Client, error) {
	api := viper.GetString("api")
	if api == "" {
		return nil, constants.ErrNoAPIConfigured
	}

	cacheConfig, err := cacheConfigFromViper()
	if err != nil {
		return nil, err
	}

	config := &explorer.Config{
		APIEndpoint: api,
		APIKey:      viper.GetString("api_key"),
		ChainSlug:   viper.GetString("chain"),
		StaleTime:   viper.GetDuration("stale_time"),
		Cache:       cacheConfig,
		UserAgent:   userAgent,
	}

	if viper.GetBool("verbose") {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}

		config.Logger = explorer.NewZapLogger(logger)
		config.Debug = true
	}

	client, err := explorerclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating explorer client: %w", err)
	}

	return client, nil
}

// cacheConfigFromViper maps the cache settings onto a cache configuration.
func cacheConfigFromViper() (*explorer.CacheConfig, error) {
	builder := explorer.NewCacheBuilder().WithL1(viper.GetBool("cache.l1"))

	switch cacheType := explorer.CacheType(viper.GetString("cache.type")); cacheType {
	case "", explorer.CacheTypeMemory:
		return builder.Config(), nil
	case explorer.CacheTypeNone:
		return builder.WithType(explorer.CacheTypeNone).Config(), nil
	case explorer.CacheTypeRedis:
		return builder.WithType(explorer.CacheTypeRedis).WithRedisConfig(&explorer.RedisCacheConfig{
			Addr:      viper.GetString("cache.redis_addr"),
			KeyPrefix: constants.DefaultRedisKeyPrefix,
		}).Config(), nil
	case explorer.CacheTypeNATS:
		return builder.WithType(explorer.CacheTypeNATS).WithNATSConfig(&explorer.NATSKVConfig{
			URL:    viper.GetString("cache.nats_url"),
			Bucket: constants.DefaultNATSBucket,
		}).Config(), nil
	default:
		return nil, fmt.Errorf("%w: %s", explorer.ErrUnsupportedCacheType, cacheType)
	}
}

// parseParams parses key=value arguments.
func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidParam, arg)
		}

		params[key] = value
	}

	return params, nil
}

// parseQuery parses repeated --query key=value flags.
func parseQuery(values []string) (url.Values, error) {
	query := url.Values{}

	for _, value := range values {
		key, val, ok := strings.Cut(value, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidParam, value)
		}

		query.Add(key, val)
	}

	return query, nil
}

// decodeDocument decodes JSON keeping integers exact.
func decodeDocument(raw []byte) (interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var doc interface{}

	err := decoder.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return normalizeNumbers(doc), nil
}

func normalizeNumbers(v interface{}) interface{} {
	switch value := v.(type) {
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return n
		}

		if f, err := value.Float64(); err == nil {
			return f
		}

		return value.String()
	case map[string]interface{}:
		for key, item := range value {
			value[key] = normalizeNumbers(item)
		}

		return value
	case []interface{}:
		for i, item := range value {
			value[i] = normalizeNumbers(item)
		}

		return value
	default:
		return v
	}
}

// renderStructured writes v as JSON or YAML. It reports false for table
// output.
func renderStructured(w io.Writer, format string, v interface{}) (bool, error) {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

		return true, encoder.Encode(v)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return true, encoder.Encode(v)
	case constants.FormatTable, "":
		return false, nil
	default:
		return true, fmt.Errorf("%w: %s", constants.ErrUnsupportedFormat, format)
	}
}

// renderDocument writes a single payload. Tables list top-level properties.
func renderDocument(w io.Writer, format string, raw []byte) error {
	doc, err := decodeDocument(raw)
	if err != nil {
		return err
	}

	done, err := renderStructured(w, format, doc)
	if done {
		return err
	}

	object, ok := doc.(map[string]interface{})
	if !ok {
		_, err = fmt.Fprintln(w, formatCell(doc))

		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	for _, key := range sortedKeys(object) {
		_ = table.Append(headerTitle(key), formatCell(object[key]))
	}

	err = table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// renderItems writes a list of items. Tables show the scalar properties of
// the first item.
func renderItems(w io.Writer, format string, items []interface{}) error {
	done, err := renderStructured(w, format, items)
	if done {
		return err
	}

	if len(items) == 0 {
		_, err = fmt.Fprintln(w, "No items found")

		return err
	}

	columns := itemColumns(items[0])

	headers := make([]any, 0, len(columns))
	for _, column := range columns {
		headers = append(headers, headerTitle(column))
	}

	table := tablewriter.NewWriter(w)
	table.Header(headers...)

	for _, item := range items {
		object, _ := item.(map[string]interface{})

		row := make([]string, 0, len(columns))
		for _, column := range columns {
			row = append(row, formatCell(object[column]))
		}

		_ = table.Append(row)
	}

	err = table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func itemColumns(item interface{}) []string {
	object, ok := item.(map[string]interface{})
	if !ok {
		return nil
	}

	columns := make([]string, 0, maxTableColumns)

	for _, key := range sortedKeys(object) {
		switch object[key].(type) {
		case map[string]interface{}, []interface{}:
			continue
		}

		columns = append(columns, key)
		if len(columns) == maxTableColumns {
			break
		}
	}

	return columns
}

func sortedKeys(object map[string]interface{}) []string {
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func headerTitle(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// formatCell renders a value for a table cell.
func formatCell(v interface{}) string {
	var text string

	switch value := v.(type) {
	case nil:
		return constants.NotAvailable
	case string:
		text = value
		if strings.HasPrefix(text, "0x") && len(text) > constants.MaxCellWidth {
			text = truncateHash(text)
		}
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(value)
		if err != nil {
			return constants.NotAvailable
		}

		text = string(data)
	default:
		text = fmt.Sprint(value)
	}

	if len(text) > constants.MaxCellWidth {
		text = text[:constants.MaxCellWidth-3] + "..."
	}

	return text
}

// truncateHash shortens a hex hash for display.
func truncateHash(hash string) string {
	if len(hash) <= constants.HashDisplayLength {
		return hash
	}

	half := constants.HashDisplayLength / 2

	return hash[:half] + "..." + hash[len(hash)-half:]
}

// listItems extracts the items of a canonical list payload.
func listItems(raw []byte) ([]interface{}, error) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}

	object, _ := doc.(map[string]interface{})
	items, _ := object["items"].([]interface{})

	return items, nil
}

func maskSecret(secret string) string {
	if secret == "" {
		return constants.None
	}

	return constants.MaskedSecret
}
