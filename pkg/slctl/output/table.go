package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/telekom/k8s-spark-launcher/pkg/slctl/client"
)

func WriteSubmissionTable(w io.Writer, subs []client.Submission) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSERVICE\tNAMESPACE\tSUBMITTED\tFALLBACK\tRESOURCES")
	for _, s := range subs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%v\t%d\n", s.ID, s.ServiceName, s.Namespace, s.Submitted, s.UsedFallbackName, len(s.Resources))
	}
	_ = tw.Flush()
}

func WriteResourceTable(w io.Writer, resources []client.ResourceInfo) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tNAME\tNAMESPACE")
	for _, r := range resources {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Kind, r.Name, r.Namespace)
	}
	_ = tw.Flush()
}

func WriteStatusTable(w io.Writer, statuses []client.ResourceStatusInfo) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tNAME\tNAMESPACE\tSTATUS\tMESSAGE")
	for _, s := range statuses {
		message := s.Message
		if message == "" {
			message = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Kind, s.Name, s.Namespace, s.Status, message)
	}
	_ = tw.Flush()
}
