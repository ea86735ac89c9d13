package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"toacrd.app/oracle/internal/brain"
	"toacrd.app/oracle/internal/http/handler"
	"toacrd.app/oracle/internal/model"
	"toacrd.app/oracle/internal/store"
)

var _ = Describe("AskHandler", func() {
	var (
		router *gin.Engine
		svc    *mockQuestionService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockQuestionService{}
		h := handler.NewAskHandler(svc)
		router.POST("/ask", h.Ask)
		router.GET("/users/:id/history", h.History)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("Ask", func() {
		It("returns the answer with its diagnostics", func() {
			var gotUser, gotQuestion string
			svc.askFn = func(_ context.Context, userID, question string) brain.Report {
				gotUser, gotQuestion = userID, question
				return brain.Report{
					RequestID:   "42",
					Answer:      "Le chat mange du poisson.",
					Model:       "gpt-4o-mini",
					Keywords:    []string{"chat", "mange"},
					WindowCount: 1,
					Documents:   []model.DocumentUsage{{Document: "a.txt", Hits: 1}},
				}
			}

			w := post(`{"user_id":"u1","question":"Pourquoi le chat mange-t-il ?"}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotUser).To(Equal("u1"))
			Expect(gotQuestion).To(Equal("Pourquoi le chat mange-t-il ?"))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["answer"]).To(Equal("Le chat mange du poisson."))
			Expect(resp["model"]).To(Equal("gpt-4o-mini"))
			Expect(resp["keywords"]).To(ConsistOf("chat", "mange"))
			Expect(resp["window_count"]).To(BeNumerically("==", 1))
			Expect(resp["documents"]).To(HaveLen(1))
		})

		It("returns empty lists rather than null when nothing was found", func() {
			svc.askFn = func(context.Context, string, string) brain.Report {
				return brain.Report{Answer: "réponse"}
			}

			w := post(`{"user_id":"u1","question":"?"}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"keywords":[]`))
			Expect(w.Body.String()).To(ContainSubstring(`"documents":[]`))
		})

		It("returns 200 with the marked text when the pipeline failed", func() {
			svc.askFn = func(context.Context, string, string) brain.Report {
				return brain.Report{Answer: brain.FormatError("Erreur", errors.New("quota")), Failed: true}
			}

			w := post(`{"user_id":"u1","question":"q"}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["failed"]).To(BeTrue())
			Expect(resp["answer"]).To(HavePrefix(brain.ErrorMarker))
		})

		It("returns 400 on invalid request body", func() {
			Expect(post(`{`).Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when a field is missing", func() {
			Expect(post(`{"user_id":"u1"}`).Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when a field is blank", func() {
			called := false
			svc.askFn = func(context.Context, string, string) brain.Report {
				called = true
				return brain.Report{}
			}

			Expect(post(`{"user_id":"  ","question":"q"}`).Code).To(Equal(http.StatusBadRequest))
			Expect(called).To(BeFalse())
		})
	})

	Describe("History", func() {
		get := func(userID string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/users/%s/history", userID), nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w
		}

		It("returns the turns oldest first", func() {
			svc.historyFn = func(_ context.Context, userID string) ([]model.Turn, error) {
				Expect(userID).To(Equal("u1"))
				return []model.Turn{
					{ID: 1, Role: model.RoleUser, Content: "q"},
					{ID: 2, Role: model.RoleAssistant, Content: "a", Model: "m"},
				}, nil
			}

			w := get("u1")

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp struct {
				UserID string `json:"user_id"`
				Turns  []struct {
					ID      string `json:"id"`
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"turns"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.UserID).To(Equal("u1"))
			Expect(resp.Turns).To(HaveLen(2))
			Expect(resp.Turns[0].Role).To(Equal("user"))
			Expect(resp.Turns[1].Content).To(Equal("a"))
			Expect(resp.Turns[1].ID).To(Equal("2"))
		})

		It("returns an empty list for an unknown user", func() {
			w := get("nobody")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"turns":[]`))
		})

		It("returns 400 for an invalid user", func() {
			svc.historyFn = func(context.Context, string) ([]model.Turn, error) {
				return nil, store.ErrInvalidUser
			}

			Expect(get("x").Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 500 when the store fails", func() {
			svc.historyFn = func(context.Context, string) ([]model.Turn, error) {
				return nil, errors.New("redis down")
			}

			w := get("u1")

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).NotTo(ContainSubstring("redis down"))
		})
	})
})
