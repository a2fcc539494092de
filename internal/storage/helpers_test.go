package storage

import (
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/chapter-engine/pkg/story"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	r, err := NewRedisStorage("redis://"+mr.Addr(), quietLogger())
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis storage: %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		mr.Close()
	})
	return r, mr
}

func testDoc(lang string) *story.Content {
	return &story.Content{
		Meta:      story.Meta{ChapterID: "chapter1", Lang: lang},
		EntryNode: "n1",
		Strings: story.Strings{
			StartBtn:  "Start",
			DeathText: "Dead",
			Speaker:   "Fox",
			UI:        map[string]string{"ok": "OK"},
			Text:      map[string]string{"t1": "Hi " + lang},
		},
		Nodes: []story.Node{
			{ID: "n1", Type: story.NodeLine, TextKey: "t1", NextNodeID: "n2"},
			{ID: "n2", Type: story.NodeEnd},
		},
	}
}

const testJSON = `{
  "meta": {"chapterId": "chapter1", "lang": "en"},
  "entryNode": "n1",
  "strings": {
    "startBtn": "Start", "deathText": "Dead", "speaker": "Fox",
    "ui": {"ok": "OK"},
    "text": {"t1": "Hi en"}
  },
  "nodes": [
    {"id": "n1", "type": "line", "textKey": "t1", "nextNodeId": "n2"},
    {"id": "n2", "type": "end"}
  ]
}`

const testYAML = `meta:
  chapterId: chapter1
  lang: jp
entryNode: n1
strings:
  startBtn: Start
  deathText: Dead
  speaker: Fox
  ui:
    ok: OK
  text:
    t1: Hi jp
nodes:
  - id: n1
    type: line
    textKey: t1
    nextNodeId: n2
  - id: n2
    type: end
`
