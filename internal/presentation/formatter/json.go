package formatter

import (
	"io"
	"os"

	"github.com/bytedance/sonic"
)

type JSONFormatter struct {
	out io.Writer
}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{out: os.Stdout}
}

func (f *JSONFormatter) SetOutput(out io.Writer) {
	f.out = out
}

func (f *JSONFormatter) Format(rows []TimelineRow) error {
	data, err := sonic.ConfigDefault.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.out.Write(data)
	return err
}
