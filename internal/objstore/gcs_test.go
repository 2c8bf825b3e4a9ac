package objstore

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestGCSError(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"object not exist", storage.ErrObjectNotExist, ErrNotFound},
		{"wrapped not exist", fmt.Errorf("attrs: %w", storage.ErrObjectNotExist), ErrNotFound},
		{"404", &googleapi.Error{Code: http.StatusNotFound}, ErrNotFound},
		{"412", &googleapi.Error{Code: http.StatusPreconditionFailed}, ErrExists},
		{"500 passes through", &googleapi.Error{Code: http.StatusInternalServerError}, nil},
		{"other passes through", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gcsError(tt.in)
			switch {
			case tt.in == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Equal(t, tt.in, got)
			default:
				assert.True(t, errors.Is(got, tt.want), "got %v", got)
			}
		})
	}
}
