// Package ghtest serves a fake GitHub API, raw host and media host backed by
// in-memory repository contents.
package ghtest

import (
	"compress/gzip"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
)

// Repo describes the contents served for a single repository.
type Repo struct {
	Owner string
	Name  string
	// Branches lists branch names in the order the API returns them. When
	// empty, the keys of Files are used in sorted order.
	Branches []string
	// Files maps branch -> repository path -> content.
	Files map[string]map[string]string
	// Truncated marks branches whose tree response sets truncated=true.
	Truncated map[string]bool
	// LFS maps repository path -> content served by the media host.
	LFS map[string]string
	// Status forces the raw host to answer a path with the given status.
	Status map[string]int
	// Stall makes the raw host hold the request for a path open until the
	// client goes away.
	Stall map[string]bool
	// BranchStatus forces the branches endpoint to answer with this status.
	BranchStatus int
	// TreeBody replaces the tree response body for a branch.
	TreeBody map[string]string
	// Gzip makes the raw host compress bodies for clients that accept it.
	Gzip bool
}

type Server struct {
	*httptest.Server

	repo *Repo

	mu         sync.Mutex
	hits       map[string]int
	userAgents []string
	gzipped    int
}

func NewServer(t *testing.T, repo *Repo) *Server {
	t.Helper()

	s := &Server{repo: repo, hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) APIHost() string   { return s.URL + "/api" }
func (s *Server) RawHost() string   { return s.URL + "/raw" }
func (s *Server) MediaHost() string { return s.URL + "/media" }

// Hits returns how many requests reached the given URL path.
func (s *Server) Hits(urlPath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[urlPath]
}

// RawHits returns how many requests the raw host served for a file.
func (s *Server) RawHits(branch, filePath string) int {
	return s.Hits("/raw/" + s.repo.Owner + "/" + s.repo.Name + "/" + branch + "/" + filePath)
}

// Gzipped returns how many raw responses were sent compressed.
func (s *Server) Gzipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gzipped
}

// UserAgents returns the User-Agent header of every request received.
func (s *Server) UserAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.userAgents...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.userAgents = append(s.userAgents, r.Header.Get("User-Agent"))
	s.mu.Unlock()

	repoPath := s.repo.Owner + "/" + s.repo.Name
	switch p := r.URL.Path; {
	case p == "/api/repos/"+repoPath+"/branches":
		s.serveBranches(w)
	case strings.HasPrefix(p, "/api/repos/"+repoPath+"/git/trees/"):
		s.serveTree(w, strings.TrimPrefix(p, "/api/repos/"+repoPath+"/git/trees/"))
	case strings.HasPrefix(p, "/raw/"+repoPath+"/"):
		s.serveRaw(w, r, strings.TrimPrefix(p, "/raw/"+repoPath+"/"))
	case strings.HasPrefix(p, "/media/media/"+repoPath+"/"):
		s.serveMedia(w, strings.TrimPrefix(p, "/media/media/"+repoPath+"/"))
	default:
		notFound(w)
	}
}

func (s *Server) branchNames() []string {
	if len(s.repo.Branches) > 0 {
		return s.repo.Branches
	}
	names := make([]string, 0, len(s.repo.Files))
	for b := range s.repo.Files {
		names = append(names, b)
	}
	sort.Strings(names)
	return names
}

func (s *Server) serveBranches(w http.ResponseWriter) {
	if s.repo.BranchStatus != 0 {
		writeJSON(w, s.repo.BranchStatus, map[string]string{"message": http.StatusText(s.repo.BranchStatus)})
		return
	}
	type branch struct {
		Name string `json:"name"`
	}
	var out []branch
	for _, b := range s.branchNames() {
		out = append(out, branch{Name: b})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) serveTree(w http.ResponseWriter, branch string) {
	if body, ok := s.repo.TreeBody[branch]; ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
		return
	}
	files, ok := s.repo.Files[branch]
	if !ok {
		notFound(w)
		return
	}

	type entry struct {
		Path string `json:"path"`
		Mode string `json:"mode"`
		Type string `json:"type"`
		SHA  string `json:"sha"`
		Size int    `json:"size,omitempty"`
	}
	dirs := map[string]bool{}
	var entries []entry
	for p, content := range files {
		entries = append(entries, entry{Path: p, Mode: "100644", Type: "blob", SHA: BlobSHA(content), Size: len(content)})
		for d := path.Dir(p); d != "." && d != "/" && !dirs[d]; d = path.Dir(d) {
			dirs[d] = true
			entries = append(entries, entry{Path: d, Mode: "040000", Type: "tree", SHA: BlobSHA(d)})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	writeJSON(w, http.StatusOK, map[string]any{
		"sha":       BlobSHA(branch),
		"tree":      entries,
		"truncated": s.repo.Truncated[branch],
	})
}

func (s *Server) serveRaw(w http.ResponseWriter, r *http.Request, key string) {
	branch, filePath, ok := s.splitBranch(key)
	if !ok {
		notFound(w)
		return
	}
	if s.repo.Stall[filePath] {
		<-r.Context().Done()
		return
	}
	if status := s.repo.Status[filePath]; status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	content, ok := s.repo.Files[branch][filePath]
	if !ok {
		notFound(w)
		return
	}
	if s.repo.Gzip && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		s.mu.Lock()
		s.gzipped++
		s.mu.Unlock()
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(content))
		_ = gz.Close()
		return
	}
	_, _ = w.Write([]byte(content))
}

func (s *Server) serveMedia(w http.ResponseWriter, key string) {
	_, filePath, ok := s.splitBranch(key)
	if !ok {
		notFound(w)
		return
	}
	content, ok := s.repo.LFS[filePath]
	if !ok {
		notFound(w)
		return
	}
	_, _ = w.Write([]byte(content))
}

// splitBranch separates "branch/path". When several branch names prefix
// key, the longest one that holds the file wins.
func (s *Server) splitBranch(key string) (string, string, bool) {
	var candidates []string
	for b := range s.repo.Files {
		if strings.HasPrefix(key, b+"/") {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return "", "", false
	}
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })
	for _, b := range candidates {
		filePath := strings.TrimPrefix(key, b+"/")
		if _, ok := s.repo.Files[b][filePath]; ok {
			return b, filePath, true
		}
	}
	return candidates[0], strings.TrimPrefix(key, candidates[0]+"/"), true
}

// BlobSHA returns the git object id of content.
func BlobSHA(content string) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// LFSPointer returns a pointer file for an object of the given size.
func LFSPointer(size int) string {
	return "version https://git-lfs.github.com/spec/v1\n" +
		"oid sha256:" + strings.Repeat("a", 64) + "\n" +
		fmt.Sprintf("size %d\n", size)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
}
