package clicks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shortlinker/shortlinker/internal/models"
)

func TestIngressTrySendDeliversUntilFull(t *testing.T) {
	in := NewIngress(2, nil)
	in.TrySend(models.ClickDetail{Code: "a"})
	in.TrySend(models.ClickDetail{Code: "b"})

	// third send should be dropped, not block
	done := make(chan struct{})
	go func() {
		in.TrySend(models.ClickDetail{Code: "c"})
		close(done)
	}()
	<-done

	first := <-in.channel()
	second := <-in.channel()
	assert.Equal(t, "a", first.Code)
	assert.Equal(t, "b", second.Code)
}

func TestDeriveSource(t *testing.T) {
	assert.Equal(t, "direct", deriveSource(""))
	assert.Equal(t, "ref:example.com", deriveSource("https://example.com/page?x=1"))
	assert.Equal(t, "ref:example.com", deriveSource("http://example.com"))
}
