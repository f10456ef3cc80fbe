package output

import (
	"fmt"
	"io"

	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/yaml"
)

// WriteManifests renders the objects as a multi-document YAML stream in the
// order given. Objects are expected to carry their TypeMeta.
func WriteManifests(w io.Writer, objs []ctrlclient.Object) error {
	for i, obj := range objs {
		if i > 0 {
			_, _ = fmt.Fprintln(w, "---")
		}
		data, err := yaml.Marshal(obj)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s: %w", obj.GetObjectKind().GroupVersionKind().Kind, obj.GetName(), err)
		}
		_, _ = w.Write(data)
	}
	return nil
}
