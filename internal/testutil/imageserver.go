package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ImageServer はURLソースのテスト用に画像を配信するHTTPサーバー
//
//	GET /images/<name>  登録された画像を返す（未登録は404）
//	GET /status/<code>  指定したステータスコードだけを返す
type ImageServer struct {
	*httptest.Server

	mu     sync.Mutex
	images map[string][]byte
	delays map[string]time.Duration
	hits   map[string]int
}

// NewImageServer は起動済みのImageServerを作成する
// 使い終わったら Close を呼ぶこと
func NewImageServer() *ImageServer {
	s := &ImageServer{
		images: make(map[string][]byte),
		delays: make(map[string]time.Duration),
		hits:   make(map[string]int),
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/images/*name", s.handleImage)
	router.GET("/status/:code", s.handleStatus)

	s.Server = httptest.NewServer(router)
	return s
}

// SetImage は配信する画像を登録する
func (s *ImageServer) SetImage(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[name] = data
}

// SetDelay は応答までの遅延を設定する
func (s *ImageServer) SetDelay(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[name] = d
}

// ImageURL は登録名に対応するURLを返す
func (s *ImageServer) ImageURL(name string) string {
	return s.URL + "/images/" + name
}

// StatusURL は指定ステータスを返すURLを返す
func (s *ImageServer) StatusURL(code int) string {
	return s.URL + "/status/" + strconv.Itoa(code)
}

// Hits は登録名へのリクエスト回数を返す
func (s *ImageServer) Hits(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[name]
}

func (s *ImageServer) handleImage(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("name"), "/")

	s.mu.Lock()
	s.hits[name]++
	data, exists := s.images[name]
	delay := s.delays[name]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			return
		}
	}

	if !exists {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (s *ImageServer) handleStatus(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil || code < 100 || code > 599 {
		c.Status(http.StatusBadRequest)
		return
	}
	c.Status(code)
}
