package remembercmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	remembercmder "github.com/Sakibyash/infinoz-bot1/cmd/memhandler/remember"
)

var _ = Describe("Remember command", func() {
	var (
		server *httptest.Server
		body   map[string]string
		status int
		reply  string
	)

	BeforeEach(func() {
		body = nil
		status = http.StatusOK
		reply = `{"status":"memory added successfully"}`

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.URL.Path).To(Equal("/add-memory"))
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires three arguments", func() {
		cmd := remembercmder.NewRememberCmd()
		Expect(cmd.Args(cmd, []string{"u1", "hi"})).To(HaveOccurred())
	})

	It("posts the exchange and prints the status", func() {
		out := &bytes.Buffer{}
		cmd := remembercmder.NewRememberCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"user-42", "I'm vegetarian", "Noted.", "--api-target", server.URL})

		Expect(cmd.Execute()).To(Succeed())
		Expect(body).To(Equal(map[string]string{
			"user_id":      "user-42",
			"user_message": "I'm vegetarian",
			"ai_response":  "Noted.",
		}))
		Expect(out.String()).To(ContainSubstring("memory added successfully"))
	})

	It("returns gateway failures", func() {
		status = http.StatusInternalServerError
		reply = `{"error":"failed to add memory"}`

		cmd := remembercmder.NewRememberCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"user-42", "hi", "hello", "--api-target", server.URL})

		Expect(cmd.Execute()).To(MatchError(ContainSubstring("failed to add memory")))
	})
})
