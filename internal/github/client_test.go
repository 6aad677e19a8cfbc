package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scene-hub/scene-hub/internal/errs"
)

const headCommit = "61eb2f523bfbfb41778e67770f1d115988622b80"

// fakeGitHub 同时扮演 REST API 与内容分发两个端点。
func fakeGitHub(t *testing.T) (*Client, *[]string) {
	t.Helper()
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.URL.Path == "/repos/mrchantey/bevyhub":
			json.NewEncoder(w).Encode(map[string]any{"default_branch": "main"})
		case strings.HasPrefix(r.URL.Path, "/repos/mrchantey/bevyhub/branches/"):
			branch := strings.TrimPrefix(r.URL.Path, "/repos/mrchantey/bevyhub/branches/")
			if branch == "missing" {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"commit": map[string]any{"sha": headCommit}})
		case strings.Contains(r.URL.Path, "/scenes/"):
			w.Write([]byte(`{"resources":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	client := NewClient(server.Client(), server.URL, server.URL, "test-token", nil)
	return client, &requests
}

func TestResolveRefToHash(t *testing.T) {
	client, _ := fakeGitHub(t)
	ctx := context.Background()

	// "latest" → 默认分支最新提交
	hash, err := client.ResolveRefToHash(ctx, "mrchantey", "bevyhub", "latest")
	if err != nil || hash != headCommit {
		t.Fatalf("latest: %v %v", hash, err)
	}

	// 40 字符 → 原样返回
	verbatim := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hash, err = client.ResolveRefToHash(ctx, "mrchantey", "bevyhub", verbatim)
	if err != nil || hash != verbatim {
		t.Fatalf("verbatim: %v %v", hash, err)
	}

	// 其余 → 按分支名解析
	hash, err = client.ResolveRefToHash(ctx, "mrchantey", "bevyhub", "main")
	if err != nil || hash != headCommit {
		t.Fatalf("branch: %v %v", hash, err)
	}
}

func TestResolveRefKeepsBranchName(t *testing.T) {
	client, _ := fakeGitHub(t)
	ref, err := client.ResolveRef(context.Background(), "mrchantey", "bevyhub", "main")
	if err != nil || ref != "main" {
		t.Fatalf("branch ref must pass through: %v %v", ref, err)
	}

	ref, err = client.ResolveRef(context.Background(), "mrchantey", "bevyhub", "latest")
	if err != nil || ref != headCommit {
		t.Fatalf("latest must resolve to head: %v %v", ref, err)
	}
}

func TestFileFetch(t *testing.T) {
	client, requests := fakeGitHub(t)
	data, err := client.File(context.Background(), "mrchantey", "bevyhub", "main", "scenes/space-scene.json")
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if !strings.Contains(string(data), "resources") {
		t.Fatalf("unexpected content: %s", data)
	}
	last := (*requests)[len(*requests)-1]
	if last != "/mrchantey/bevyhub/main/scenes/space-scene.json" {
		t.Fatalf("content path mismatch: %s", last)
	}
}

func TestFileNotFoundIsFailure(t *testing.T) {
	client, _ := fakeGitHub(t)
	_, err := client.File(context.Background(), "mrchantey", "bevyhub", "main", "nope.json")
	if !errors.Is(err, errs.ErrNotFoundUpstream) {
		t.Fatalf("expected ErrNotFoundUpstream, got %v", err)
	}
}

func TestBranchNotFound(t *testing.T) {
	client, _ := fakeGitHub(t)
	_, err := client.LatestCommitHash(context.Background(), "mrchantey", "bevyhub", "missing")
	if !errors.Is(err, errs.ErrNotFoundUpstream) {
		t.Fatalf("expected ErrNotFoundUpstream, got %v", err)
	}
}

func TestMissingTokenIsFatalConfigError(t *testing.T) {
	client := NewClient(http.DefaultClient, "http://unused", "http://unused", "", nil)
	_, err := client.DefaultBranch(context.Background(), "o", "r")
	if !errors.Is(err, errs.ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}
