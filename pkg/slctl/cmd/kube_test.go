package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDriverResourceRefs(t *testing.T) {
	tests := []struct {
		name      string
		arg       string
		namespace string
		want      []string
	}{
		{
			name:      "application name",
			arg:       "pi",
			namespace: "analytics",
			want:      []string{"pi-driver-svc", "pi-driver-svc-ui", "pi-driver-conf-map"},
		},
		{
			name:      "resolved service name",
			arg:       "pi-driver-svc",
			namespace: "analytics",
			want:      []string{"pi-driver-svc", "pi-driver-svc-ui", "pi-driver-conf-map"},
		},
		{
			name:      "display name is normalized",
			arg:       "Word Count",
			namespace: "default",
			want:      []string{"word-count-driver-svc", "word-count-driver-svc-ui", "word-count-driver-conf-map"},
		},
		{
			name:      "fallback service name",
			arg:       "spark-1600000000000-driver-svc",
			namespace: "default",
			want:      []string{"spark-1600000000000-driver-svc", "spark-1600000000000-driver-svc-ui", "spark-1600000000000-driver-conf-map"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := driverResourceRefs(tt.arg, tt.namespace)
			require.Len(t, refs, 3)

			require.Equal(t, "Service", refs[0].GVK.Kind)
			require.Equal(t, "Service", refs[1].GVK.Kind)
			require.Equal(t, "ConfigMap", refs[2].GVK.Kind)

			for i, ref := range refs {
				require.Equal(t, tt.want[i], ref.Name)
				require.Equal(t, tt.namespace, ref.Namespace)
			}
		})
	}
}
