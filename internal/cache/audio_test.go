package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bobarin/signspeak/internal/models"
)

func audioFor(s string) models.Audio {
	return models.Audio{Data: []byte(s), SampleRate: models.AudioSampleRate, Channels: models.AudioChannels}
}

func TestAudioCache_GetPut(t *testing.T) {
	c := NewAudioCache(2)
	key := Key{Voice: "Kore", Text: "hello"}

	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put(key, audioFor("pcm"))

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if string(got.Data) != "pcm" {
		t.Errorf("data mismatch: got %q, want %q", got.Data, "pcm")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %+v", stats)
	}
}

func TestAudioCache_BoundAndEvictsOldest(t *testing.T) {
	const capacity = 5
	c := NewAudioCache(capacity)

	for i := 0; i <= capacity; i++ {
		c.Put(Key{Voice: "Kore", Text: fmt.Sprintf("phrase-%d", i)}, audioFor("x"))
		if c.Len() > capacity {
			t.Fatalf("cache grew past capacity: %d > %d", c.Len(), capacity)
		}
	}

	if _, ok := c.Get(Key{Voice: "Kore", Text: "phrase-0"}); ok {
		t.Error("first inserted key should have been evicted")
	}
	for i := 1; i <= capacity; i++ {
		if _, ok := c.Get(Key{Voice: "Kore", Text: fmt.Sprintf("phrase-%d", i)}); !ok {
			t.Errorf("phrase-%d should still be cached", i)
		}
	}
	if ev := c.Stats().Evictions; ev != 1 {
		t.Errorf("expected 1 eviction, got %d", ev)
	}
}

func TestAudioCache_GetPromotes(t *testing.T) {
	c := NewAudioCache(3)
	a := Key{Voice: "Kore", Text: "A"}
	b := Key{Voice: "Kore", Text: "B"}
	cc := Key{Voice: "Kore", Text: "C"}
	d := Key{Voice: "Kore", Text: "D"}

	c.Put(a, audioFor("a"))
	c.Put(b, audioFor("b"))
	c.Put(cc, audioFor("c"))

	if _, ok := c.Get(a); !ok {
		t.Fatal("expected A to be cached")
	}
	c.Put(d, audioFor("d"))

	if _, ok := c.Get(b); ok {
		t.Error("B should have been evicted after A was promoted")
	}
	for _, k := range []Key{a, cc, d} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestAudioCache_VoiceIsolation(t *testing.T) {
	c := NewAudioCache(4)
	kore := Key{Voice: "Kore", Text: "namaskaram"}
	puck := Key{Voice: "Puck", Text: "namaskaram"}

	c.Put(kore, audioFor("kore-audio"))

	if _, ok := c.Get(puck); ok {
		t.Fatal("same text with a different voice must miss")
	}

	c.Put(puck, audioFor("puck-audio"))

	gotKore, _ := c.Get(kore)
	gotPuck, _ := c.Get(puck)
	if string(gotKore.Data) != "kore-audio" || string(gotPuck.Data) != "puck-audio" {
		t.Errorf("entries bled into each other: kore=%q puck=%q", gotKore.Data, gotPuck.Data)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestAudioCache_OverwriteKeepsOrdering(t *testing.T) {
	c := NewAudioCache(2)
	a := Key{Voice: "Kore", Text: "A"}
	b := Key{Voice: "Kore", Text: "B"}

	c.Put(a, audioFor("a1"))
	c.Put(b, audioFor("b"))
	c.Put(a, audioFor("a2"))

	if c.Len() != 2 {
		t.Fatalf("overwrite changed size: got %d", c.Len())
	}

	c.Put(Key{Voice: "Kore", Text: "C"}, audioFor("c"))

	if _, ok := c.Get(b); ok {
		t.Error("B should be evicted; A was refreshed by the overwrite")
	}
	got, ok := c.Get(a)
	if !ok || string(got.Data) != "a2" {
		t.Errorf("expected A=a2, got %q (ok=%v)", got.Data, ok)
	}
}

func TestAudioCache_DefaultCapacity(t *testing.T) {
	c := NewAudioCache(0)
	if got := c.Stats().Capacity; got != DefaultCapacity {
		t.Errorf("expected capacity %d, got %d", DefaultCapacity, got)
	}
}

func TestAudioCache_ConcurrentAccess(t *testing.T) {
	const capacity = 10
	c := NewAudioCache(capacity)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := Key{Voice: "Kore", Text: fmt.Sprintf("%d-%d", g, i%25)}
				if _, ok := c.Get(key); !ok {
					c.Put(key, audioFor("x"))
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > capacity {
		t.Errorf("cache exceeded capacity under concurrency: %d", c.Len())
	}
}
