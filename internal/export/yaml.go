package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

// YAMLExporter exports sessions in YAML format
type YAMLExporter struct{}

func (e *YAMLExporter) Export(session *domain.Session, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	return enc.Encode(session)
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}

func (e *YAMLExporter) ContentType() string {
	return "application/yaml"
}
