package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/publish"
)

func newPublishCmd(a *app) *cobra.Command {
	var topic, input string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Validate JSON lines against a group and send them to Kafka",
		Long: `publish reads one JSON object per line, from --input or stdin, and sends
each record that carries every feature of every dataset in the group.
Invalid records are logged and skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.loadGroup()
			if err != nil {
				return err
			}

			r := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").WithDetail("path", input)
				}
				defer f.Close()
				r = f
			}

			producer, err := publish.Dial(a.cfg.Kafka)
			if err != nil {
				return err
			}
			p, err := publish.New(producer, g, firstNonEmpty(topic, a.cfg.Kafka.Topic),
				publish.WithLogger(a.logger),
				publish.WithMetrics(a.serveMetrics(cmd.Context())))
			if err != nil {
				_ = producer.Close()
				return err
			}
			defer p.Close()

			sum, err := p.PublishLines(cmd.Context(), r)
			a.logger.Info("publish finished", zap.Int("sent", sum.Sent), zap.Int("rejected", sum.Rejected))
			if err != nil {
				return err
			}
			cmd.Printf("sent %d, rejected %d\n", sum.Sent, sum.Rejected)
			return nil
		},
	}
	cmd.Flags().StringVarP(&a.group, "group", "g", "", "Metadata group whose features validate each record")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Kafka topic (defaults to kafka.topic, then the group id)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON lines file (defaults to stdin)")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
