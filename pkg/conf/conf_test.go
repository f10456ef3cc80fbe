package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithDoesNotMutateReceiver(t *testing.T) {
	base := FromMap(map[string]string{
		"spark.app.name": "pi",
		"spark.ui.port":  "4041",
	})

	next := base.With("spark.driver.host", "pi-driver-svc.default.svc.cluster.local")

	require.False(t, base.Contains("spark.driver.host"), "receiver must stay unchanged")
	require.Equal(t, 2, base.Len())
	require.Equal(t, 3, next.Len())

	host, ok := next.Get("spark.driver.host")
	require.True(t, ok)
	require.Equal(t, "pi-driver-svc.default.svc.cluster.local", host)

	// Shared keys are visible in both, with the original values intact.
	require.Equal(t, "pi", next.AppName())
	require.Equal(t, "pi", base.AppName())
}

func TestWithAllOverwritesKeyByKey(t *testing.T) {
	base := FromMap(map[string]string{
		"spark.app.name": "pi",
		"spark.ui.port":  "4041",
	})

	next := base.WithAll(map[string]string{
		"spark.ui.port":     "8080",
		"spark.driver.port": "7100",
	})

	require.Equal(t, "4041", base.GetOrDefault("spark.ui.port", ""))
	require.Equal(t, "8080", next.GetOrDefault("spark.ui.port", ""))
	require.Equal(t, "7100", next.GetOrDefault("spark.driver.port", ""))
	require.Equal(t, 2, base.Len())
	require.Equal(t, 3, next.Len())
}

func TestFromMapCopiesInput(t *testing.T) {
	props := map[string]string{"spark.app.name": "pi"}
	c := FromMap(props)

	props["spark.app.name"] = "changed"
	props["extra"] = "value"

	require.Equal(t, "pi", c.AppName())
	require.False(t, c.Contains("extra"))
}

func TestPropsReturnsCopy(t *testing.T) {
	c := FromMap(map[string]string{"spark.app.name": "pi"})

	props := c.Props()
	props["spark.app.name"] = "changed"

	require.Equal(t, "pi", c.AppName())
}

func TestTypedAccessorDefaults(t *testing.T) {
	c := New()

	driverPort, err := c.DriverPort()
	require.NoError(t, err)
	require.Equal(t, 7078, driverPort)

	blockManagerPort, err := c.BlockManagerPort()
	require.NoError(t, err)
	require.Equal(t, 7079, blockManagerPort)

	uiPort, err := c.UIPort()
	require.NoError(t, err)
	require.Equal(t, 4040, uiPort)

	nodePort, err := c.UINodePort()
	require.NoError(t, err)
	require.Equal(t, 0, nodePort)

	require.Equal(t, "default", c.Namespace())
	require.Equal(t, "svc.cluster.local", c.DNSDomain())
	require.Equal(t, "", c.AppName())
}

func TestTypedAccessorsReadExplicitValues(t *testing.T) {
	c := FromMap(map[string]string{
		"spark.driver.port":                          "7100",
		"spark.blockManager.port":                    "7200",
		"spark.ui.port":                              "8080",
		"spark.kubernetes.driver.service.uiNodePort": "30500",
		"spark.kubernetes.namespace":                 "analytics",
		"spark.kubernetes.dns.domain":                "svc.cluster.internal",
	})

	driverPort, err := c.DriverPort()
	require.NoError(t, err)
	require.Equal(t, 7100, driverPort)

	blockManagerPort, err := c.BlockManagerPort()
	require.NoError(t, err)
	require.Equal(t, 7200, blockManagerPort)

	uiPort, err := c.UIPort()
	require.NoError(t, err)
	require.Equal(t, 8080, uiPort)

	nodePort, err := c.UINodePort()
	require.NoError(t, err)
	require.Equal(t, 30500, nodePort)

	require.Equal(t, "analytics", c.Namespace())
	require.Equal(t, "svc.cluster.internal", c.DNSDomain())
}

func TestGetIntMalformedValueNamesKey(t *testing.T) {
	c := FromMap(map[string]string{"spark.driver.port": "not-a-port"})

	_, err := c.DriverPort()
	require.Error(t, err)
	require.Contains(t, err.Error(), "spark.driver.port")
	require.Contains(t, err.Error(), "not-a-port")
}

func TestGetBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
		wantErr  bool
	}{
		{"unset uses default", "", true, true, false},
		{"true", "true", false, true, false},
		{"false", "false", true, false, false},
		{"malformed", "yes-please", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			if tt.value != "" {
				c = c.With("spark.test.flag", tt.value)
			}
			got, err := c.GetBool("spark.test.flag", tt.def)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestKeysSorted(t *testing.T) {
	c := FromMap(map[string]string{
		"spark.ui.port":     "4040",
		"spark.app.name":    "pi",
		"spark.driver.port": "7078",
	})

	require.Equal(t, []string{"spark.app.name", "spark.driver.port", "spark.ui.port"}, c.Keys())
}

func TestRender(t *testing.T) {
	c := FromMap(map[string]string{
		"spark.ui.port":  "4040",
		"spark.app.name": "pi",
	})

	require.Equal(t, "spark.app.name=pi\nspark.ui.port=4040\n", c.Render())
	require.Equal(t, "", New().Render())
}

func TestLoadPropertiesFile(t *testing.T) {
	content := `# spark-defaults for the pi job
spark.app.name pi

spark.driver.port	7100
spark.executor.extraJavaOptions -verbose:gc -XX:+UseG1GC
spark.eventLog.enabled
`
	path := filepath.Join(t.TempDir(), "spark-defaults.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "pi", c.AppName())
	require.Equal(t, "7100", c.GetOrDefault("spark.driver.port", ""))
	require.Equal(t, "-verbose:gc -XX:+UseG1GC", c.GetOrDefault("spark.executor.extraJavaOptions", ""))

	// A key without a value is present with an empty value.
	v, ok := c.Get("spark.eventLog.enabled")
	require.True(t, ok)
	require.Equal(t, "", v)

	require.Equal(t, 4, c.Len())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.conf"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "absent.conf")
}

func TestFromYAML(t *testing.T) {
	content := []byte(`
spark.app.name: pi
spark.ui.port: 8080
spark.eventLog.enabled: true
spark.empty:
`)

	c, err := FromYAML(content)
	require.NoError(t, err)

	require.Equal(t, "pi", c.AppName())
	require.Equal(t, "8080", c.GetOrDefault("spark.ui.port", ""))
	require.Equal(t, "true", c.GetOrDefault("spark.eventLog.enabled", ""))
	require.Equal(t, "", c.GetOrDefault("spark.empty", "unset"))

	uiPort, err := c.UIPort()
	require.NoError(t, err)
	require.Equal(t, 8080, uiPort)
}

func TestFromYAMLRejectsNestedValues(t *testing.T) {
	_, err := FromYAML([]byte("spark.nested:\n  inner: value\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "spark.nested")
}

func TestFromYAMLMalformed(t *testing.T) {
	_, err := FromYAML([]byte("{unclosed"))
	require.Error(t, err)
}
