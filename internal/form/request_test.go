package form

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestParts_RawMode(t *testing.T) {
	tests := []struct {
		name  string
		opts  ParseOptions
		parts []partSpec
		want  []string // "field:name=value" or "file:name/filename=content"
	}{
		{
			name:  "fields and files in order",
			parts: []partSpec{field("a", "1"), file("doc", "a.png", "png"), field("b", "2")},
			want:  []string{"field:a=1", "file:doc/a.png=png", "field:b=2"},
		},
		{
			name:  "check file is not applied",
			opts:  ParseOptions{CheckFile: ExtensionFilter(".png")},
			parts: []partSpec{file("run", "run.exe", "MZ")},
			want:  []string{"file:run/run.exe=MZ"},
		},
		{
			name:  "fields are not collected",
			opts:  ParseOptions{Limits: Limits{Fields: 5}},
			parts: []partSpec{field("a", "1")},
			want:  []string{"field:a=1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newTestRequest(t, t.TempDir(), tt.opts, tt.parts...)

			src, err := req.Parts(context.Background())
			require.NoError(t, err)

			var got []string
			for {
				p, err := src.Next(context.Background())
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)

				switch p := p.(type) {
				case *FieldPart:
					got = append(got, "field:"+p.Name+"="+p.Value)
				case *StreamPart:
					data, err := io.ReadAll(p)
					require.NoError(t, err)
					got = append(got, "file:"+p.FieldName+"/"+p.Filename+"="+string(data))
				default:
					t.Fatalf("unexpected part type %T", p)
				}
			}
			assert.Equal(t, tt.want, got)
			assert.Empty(t, src.Fields())
		})
	}
}
