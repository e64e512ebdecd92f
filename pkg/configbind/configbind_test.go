package configbind

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/bootkit/pkg/datasize"
	bserrors "github.com/marmos91/bootkit/pkg/errors"
	"github.com/marmos91/bootkit/pkg/ledger"
	"github.com/marmos91/bootkit/pkg/properties"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverConfig struct {
	Port            int           `config:"port" default:"8080" validate:"min=1,max=65535" description:"listen port"`
	ShutdownTimeout time.Duration `config:"shutdown-timeout" default:"10s"`
	MaxRequestSize  datasize.Size `config:"max-request-size" default:"1MiB"`
	LogRequests     bool          `config:"log-requests"`
	Ratio           float64       `config:"ratio" default:"0.5"`
	Environment     string        `config:"environment,required"`
	Mode            string        `config:"mode" enum:"fast,safe" default:"safe"`
	Tags            []string      `config:"tags"`
	Password        string        `config:"password" secret:"true"`
	TLS             struct {
		Cert    string `config:"cert"`
		Enabled bool   `config:"enabled"`
	} `config:"tls"`

	Ignored string
}

type level int

func (l *level) UnmarshalText(text []byte) error {
	switch string(text) {
	case "low":
		*l = 1
	case "high":
		*l = 2
	default:
		return fmt.Errorf("unknown level %q", text)
	}
	return nil
}

func (l level) MarshalText() ([]byte, error) {
	if l == 2 {
		return []byte("high"), nil
	}
	return []byte("low"), nil
}

type leveledConfig struct {
	Level level `config:"level" default:"low"`
}

type rangeConfig struct {
	Min int `config:"min"`
	Max int `config:"max"`
}

func (c *rangeConfig) Validate() error {
	if c.Min > c.Max {
		return errors.New("min must not exceed max")
	}
	return nil
}

type TestingConfig struct {
	Value string `config:"value"`
}

func newLedger(kv ...string) *ledger.Ledger {
	return ledger.New(properties.Of(kv...))
}

// ============================================================================
// Schema
// ============================================================================

func TestSchemaFor(t *testing.T) {
	t.Parallel()

	s, err := SchemaFor[serverConfig]("http-server")
	require.NoError(t, err)
	assert.Equal(t, "http-server", s.Name())

	var names []string
	kinds := map[string]Kind{}
	for _, f := range s.Fields() {
		names = append(names, f.Name)
		kinds[f.Name] = f.Kind
	}
	assert.Equal(t, []string{
		"port", "shutdown-timeout", "max-request-size", "log-requests", "ratio",
		"environment", "mode", "tags", "password", "tls.cert", "tls.enabled",
	}, names)

	assert.Equal(t, KindInt, kinds["port"])
	assert.Equal(t, KindDuration, kinds["shutdown-timeout"])
	assert.Equal(t, KindDataSize, kinds["max-request-size"])
	assert.Equal(t, KindBool, kinds["log-requests"])
	assert.Equal(t, KindFloat, kinds["ratio"])
	assert.Equal(t, KindString, kinds["environment"])
	assert.Equal(t, KindEnum, kinds["mode"])
	assert.Equal(t, KindStringList, kinds["tags"])

	fields := s.Fields()
	assert.Equal(t, "8080", fields[0].Default)
	assert.Equal(t, "10s", fields[1].Default)
	assert.True(t, fields[5].Required)
	assert.Equal(t, []string{"fast", "safe"}, fields[6].Enum)
	assert.True(t, fields[8].Secret)
	assert.Equal(t, "listen port", fields[0].Description)

	assert.Equal(t, []string{"a.port", "a.shutdown-timeout"}, s.Keys("a")[:2])
}

func TestDataSizeDefaultRebindsExactly(t *testing.T) {
	t.Parallel()

	type limits struct {
		Body   datasize.Size `config:"body" default:"1500"`
		Header datasize.Size `config:"header" default:"1000000"`
		Upload datasize.Size `config:"upload" default:"1572865"`
	}

	s := MustSchema[limits]("limits")
	defaults := make([]string, 0, 6)
	for _, f := range s.Fields() {
		defaults = append(defaults, "limits."+f.Name, f.Default)
	}
	assert.Equal(t, []string{
		"limits.body", "1500",
		"limits.header", "1MB",
		"limits.upload", "1572865",
	}, defaults)

	b, err := Bind(newLedger(defaults...), s, "limits")
	require.NoError(t, err)
	cfg := b.Object.(*limits)
	assert.Equal(t, datasize.Size(1500), cfg.Body)
	assert.Equal(t, datasize.Size(1000000), cfg.Header)
	assert.Equal(t, datasize.Size(1572865), cfg.Upload)
}

func TestSchemaForNameDefaultsToType(t *testing.T) {
	t.Parallel()

	s, err := SchemaFor[TestingConfig]("")
	require.NoError(t, err)
	assert.Equal(t, "TestingConfig", s.Name())
}

func TestSchemaForErrors(t *testing.T) {
	t.Parallel()

	type unsupported struct {
		M map[string]string `config:"m"`
	}
	type badDefault struct {
		N int `config:"n" default:"many"`
	}
	type enumOnInt struct {
		N int `config:"n" enum:"1,2"`
	}
	type duplicate struct {
		A string `config:"name"`
		B string `config:"name"`
	}
	type badName struct {
		A string `config:"Name"`
	}
	type requiredGroup struct {
		G struct {
			A string `config:"a"`
		} `config:"g,required"`
	}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"not a struct", func() error { _, err := SchemaFor[int]("x"); return err }},
		{"unsupported type", func() error { _, err := SchemaFor[unsupported]("x"); return err }},
		{"bad default", func() error { _, err := SchemaFor[badDefault]("x"); return err }},
		{"enum on int", func() error { _, err := SchemaFor[enumOnInt]("x"); return err }},
		{"duplicate", func() error { _, err := SchemaFor[duplicate]("x"); return err }},
		{"bad name", func() error { _, err := SchemaFor[badName]("x"); return err }},
		{"required group", func() error { _, err := SchemaFor[requiredGroup]("x"); return err }},
		{"defaults type mismatch", func() error {
			_, err := SchemaFor[TestingConfig]("x", WithDefaults(func() *rangeConfig { return &rangeConfig{} }))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.fn())
		})
	}

	assert.Panics(t, func() { MustSchema[badDefault]("x") })
}

// ============================================================================
// Bind
// ============================================================================

func TestBindCoercesEveryKind(t *testing.T) {
	t.Parallel()

	l := newLedger(
		"http-server.port", "9090",
		"http-server.shutdown-timeout", "1m30s",
		"http-server.max-request-size", "2MiB",
		"http-server.log-requests", "true",
		"http-server.ratio", "0.25",
		"http-server.environment", "prod",
		"http-server.mode", "fast",
		"http-server.tags", "a, b,,c",
		"http-server.password", "hunter2",
		"http-server.tls.enabled", "true",
		"http-server.unknown", "x",
		"other.key", "y",
	)

	b, err := Bind(l, MustSchema[serverConfig]("http-server"), "http-server")
	require.NoError(t, err)

	cfg := b.Object.(*serverConfig)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 2*datasize.MiB, cfg.MaxRequestSize)
	assert.True(t, cfg.LogRequests)
	assert.Equal(t, 0.25, cfg.Ratio)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "fast", cfg.Mode)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Tags)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.True(t, cfg.TLS.Enabled)
	assert.Equal(t, "", cfg.TLS.Cert)

	assert.Equal(t, []string{"http-server.unknown"}, b.Unused)
	assert.Equal(t, []string{"http-server.unknown", "other.key"}, l.UnconsumedKeys())

	unused := b.UnusedError()
	require.Error(t, unused)
	assert.True(t, bserrors.IsUnusedConfiguration(unused))
	assert.Contains(t, unused.Error(), "Configuration property 'http-server.unknown' was not used")
}

func TestBindKeepsDefaults(t *testing.T) {
	t.Parallel()

	l := newLedger("environment", "dev")
	b, err := Bind(l, MustSchema[serverConfig]("server"), "")
	require.NoError(t, err)

	cfg := b.Object.(*serverConfig)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, datasize.MiB, cfg.MaxRequestSize)
	assert.Equal(t, "safe", cfg.Mode)
	assert.Nil(t, b.Unused)
}

func TestBindWithDefaults(t *testing.T) {
	t.Parallel()

	s := MustSchema[serverConfig]("server", WithDefaults(func() *serverConfig {
		return &serverConfig{Port: 1234, Environment: "ignored", Mode: "fast"}
	}))

	b, err := Bind(newLedger("environment", "dev"), s, "")
	require.NoError(t, err)

	cfg := b.Object.(*serverConfig)
	// Default tags are applied on top of the default object.
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "safe", cfg.Mode)
	assert.Equal(t, "dev", cfg.Environment)

	s2 := MustSchema[rangeConfig]("range", WithDefaults(func() *rangeConfig {
		return &rangeConfig{Min: 1, Max: 10}
	}))
	b, err = Bind(newLedger(), s2, "range")
	require.NoError(t, err)
	assert.Equal(t, &rangeConfig{Min: 1, Max: 10}, b.Object)
	assert.Equal(t, "10", s2.Fields()[1].Default)
}

func TestBindObjectsAreIndependent(t *testing.T) {
	t.Parallel()

	s := MustSchema[serverConfig]("server")
	a, err := Bind(newLedger("environment", "a", "tags", "x"), s, "")
	require.NoError(t, err)
	b, err := Bind(newLedger("environment", "b"), s, "")
	require.NoError(t, err)

	assert.Equal(t, "a", a.Object.(*serverConfig).Environment)
	assert.Equal(t, "b", b.Object.(*serverConfig).Environment)
	assert.Nil(t, b.Object.(*serverConfig).Tags)
}

func TestBindCoercionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		raw  string
		want string
	}{
		{"port", "abc", "Invalid value 'abc' for configuration property 's.port': expected int"},
		{"port", "", "Invalid value '' for configuration property 's.port': expected int"},
		{"shutdown-timeout", "10", "Invalid value '10' for configuration property 's.shutdown-timeout': expected duration"},
		{"log-requests", "yes please", "Invalid value 'yes please' for configuration property 's.log-requests': expected bool"},
		{"ratio", "half", "Invalid value 'half' for configuration property 's.ratio': expected float"},
		{"mode", "turbo", "Invalid value 'turbo' for configuration property 's.mode': expected one of fast, safe"},
		{"max-request-size", "lots", "Invalid value 'lots' for configuration property 's.max-request-size': invalid data size"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.raw, func(t *testing.T) {
			l := newLedger("s.environment", "dev", "s."+tt.key, tt.raw)
			_, err := Bind(l, MustSchema[serverConfig]("s"), "s")
			require.Error(t, err)
			assert.Equal(t, bserrors.ErrConfigCoercion, bserrors.KindOf(err))

			msgs := bserrors.MessagesOf(err)
			require.Len(t, msgs, 1)
			assert.True(t, strings.HasPrefix(msgs[0], tt.want), "got %q", msgs[0])

			// Failed keys are still consumed.
			assert.True(t, l.IsConsumed("s."+tt.key))
		})
	}
}

func TestBindTextUnmarshaler(t *testing.T) {
	t.Parallel()

	s := MustSchema[leveledConfig]("lv")
	assert.Equal(t, KindEnum, s.Fields()[0].Kind)
	assert.Equal(t, "low", s.Fields()[0].Default)

	b, err := Bind(newLedger("lv.level", "high"), s, "lv")
	require.NoError(t, err)
	assert.Equal(t, level(2), b.Object.(*leveledConfig).Level)
	assert.Equal(t, "high", b.Properties[0].Runtime)

	_, err = Bind(newLedger("lv.level", "medium"), s, "lv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown level "medium"`)
}

func TestBindSecretNotLeaked(t *testing.T) {
	t.Parallel()

	type secretPort struct {
		Port int `config:"port" secret:"true"`
	}
	_, err := Bind(newLedger("port", "s3cr3t"), MustSchema[secretPort]("p"), "")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cr3t")
	assert.Contains(t, err.Error(), Redacted)
}

func TestBindMissingRequired(t *testing.T) {
	t.Parallel()

	_, err := Bind(newLedger(), MustSchema[serverConfig]("s"), "s")
	require.Error(t, err)
	assert.Equal(t, bserrors.ErrMissingRequired, bserrors.KindOf(err))
	assert.Equal(t, []string{"Configuration property 's.environment' is required"}, bserrors.MessagesOf(err))
}

func TestBindValidation(t *testing.T) {
	t.Parallel()

	t.Run("TagConstraint", func(t *testing.T) {
		_, err := Bind(newLedger("s.environment", "dev", "s.port", "70000"), MustSchema[serverConfig]("s"), "s")
		require.Error(t, err)
		assert.Equal(t, bserrors.ErrConfigValidation, bserrors.KindOf(err))
		assert.Equal(t, []string{"Invalid configuration property 's.port': must satisfy 'max=65535'"}, bserrors.MessagesOf(err))
	})

	t.Run("ValidatorInterface", func(t *testing.T) {
		_, err := Bind(newLedger("r.min", "5", "r.max", "1"), MustSchema[rangeConfig]("range"), "r")
		require.Error(t, err)
		assert.Equal(t, bserrors.ErrConfigValidation, bserrors.KindOf(err))
		assert.Equal(t, []string{"Invalid configuration 'range': min must not exceed max"}, bserrors.MessagesOf(err))
	})

	t.Run("SkippedAfterCoercionFailure", func(t *testing.T) {
		_, err := Bind(newLedger("r.min", "x", "r.max", "1"), MustSchema[rangeConfig]("range"), "r")
		require.Error(t, err)
		assert.Len(t, bserrors.MessagesOf(err), 1)
		assert.Equal(t, bserrors.ErrConfigCoercion, bserrors.KindOf(err))
	})
}

func TestBindReports(t *testing.T) {
	t.Parallel()

	res, err := BindAll(newLedger(
		"http.environment", "dev",
		"http.port", "9000",
		"http.password", "hunter2",
	), []Request{{ID: "http", Schema: MustSchema[serverConfig]("http"), Prefix: "http"}})
	require.NoError(t, err)

	reports := res.Reports()
	require.Len(t, reports, 11)
	assert.Equal(t, PropertyReport{
		Component:   "http",
		Key:         "http.port",
		Default:     "8080",
		Runtime:     "9000",
		Description: "listen port",
	}, reports[0])

	password := reports[8]
	assert.Equal(t, "http.password", password.Key)
	assert.True(t, password.Secret)
	assert.Equal(t, Redacted, password.Runtime)
	assert.Equal(t, "", password.Default)
}

// ============================================================================
// BindAll
// ============================================================================

func TestBindAllAggregates(t *testing.T) {
	t.Parallel()

	l := newLedger("a.port", "abc", "c.min", "9", "c.max", "1")
	_, err := BindAll(l, []Request{
		{ID: "a", Schema: MustSchema[serverConfig]("a"), Prefix: "a"},
		{ID: "b", Schema: MustSchema[serverConfig]("b"), Prefix: "b"},
		{ID: "c", Schema: MustSchema[rangeConfig]("c"), Prefix: "c"},
		{ID: "no-config"},
	})
	require.Error(t, err)

	// Coercion wins the kind; every message is kept.
	assert.Equal(t, bserrors.ErrConfigCoercion, bserrors.KindOf(err))
	assert.Equal(t, []string{
		"Invalid value 'abc' for configuration property 'a.port': expected int",
		"Configuration property 'a.environment' is required",
		"Configuration property 'b.environment' is required",
		"Invalid configuration 'c': min must not exceed max",
	}, bserrors.MessagesOf(err))
}

func TestBindAllUnusedPerPrefix(t *testing.T) {
	t.Parallel()

	l := newLedger(
		"node.environment", "dev",
		"node.extra", "1",
		"shared.min", "1",
		"shared.max", "2",
		"stray", "3",
	)
	res, err := BindAll(l, []Request{
		{ID: "node", Schema: MustSchema[serverConfig]("node"), Prefix: "node"},
		{ID: "range", Schema: MustSchema[rangeConfig]("range"), Prefix: "shared"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{"node": {"node.extra"}}, res.Unused())
	assert.Equal(t, []string{"node.extra", "stray"}, l.UnconsumedKeys())

	b, ok := res.Get("range")
	require.True(t, ok)
	assert.Equal(t, &rangeConfig{Min: 1, Max: 2}, b.Object)
	assert.Len(t, res.Objects(), 2)
}

func TestBindEmptyPrefix(t *testing.T) {
	t.Parallel()

	l := newLedger("value", "v")
	res, err := BindAll(l, []Request{{ID: "testing", Schema: MustSchema[TestingConfig](""), Prefix: ""}})
	require.NoError(t, err)

	b, _ := res.Get("testing")
	assert.Equal(t, "v", b.Object.(*TestingConfig).Value)
	assert.True(t, l.IsConsumed("value"))
	assert.Empty(t, res.Unused())
}

// ============================================================================
// JSON schema
// ============================================================================

func TestJSONSchema(t *testing.T) {
	t.Parallel()

	js := MustSchema[serverConfig]("http-server").JSONSchema()
	assert.Equal(t, "http-server", js.Title)
	assert.Equal(t, []string{"environment"}, js.Required)

	port, ok := js.Properties.Get("port")
	require.True(t, ok)
	assert.Equal(t, "integer", port.Type)
	assert.Equal(t, 8080, port.Default)

	mode, _ := js.Properties.Get("mode")
	assert.Equal(t, []any{"fast", "safe"}, mode.Enum)

	tags, _ := js.Properties.Get("tags")
	assert.Equal(t, "array", tags.Type)

	password, _ := js.Properties.Get("password")
	assert.True(t, password.WriteOnly)

	_, ok = js.Properties.Get("tls.cert")
	assert.True(t, ok)

	data, err := json.Marshal(js)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"additionalProperties":false`)
}
