// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

//go:build integration

package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/bruth/bruth/internal/api"
	"github.com/bruth/bruth/internal/auth"
	"github.com/bruth/bruth/internal/auth/memory"
	"github.com/bruth/bruth/internal/auth/postgres"
	"github.com/bruth/bruth/internal/auth/redis"
)

const testSecret = "integration-secret-0123456789abcdef"

// tokenStack builds a token authority and returns it with its close function.
type tokenStack func() (auth.TokenAuthority, func())

var (
	signedStack tokenStack = func() (auth.TokenAuthority, func()) {
		authority, err := auth.NewSignedTokenAuthority([]byte(testSecret), time.Hour)
		Expect(err).NotTo(HaveOccurred())
		return authority, func() {}
	}
	opaqueMemoryStack tokenStack = func() (auth.TokenAuthority, func()) {
		authority, err := auth.NewOpaqueTokenAuthority(memory.NewTokenTable(), time.Hour)
		Expect(err).NotTo(HaveOccurred())
		return authority, func() {}
	}
	opaqueRedisStack tokenStack = func() (auth.TokenAuthority, func()) {
		table, closeFn, err := redis.Connect(env.ctx, redis.Options{Addr: env.redisAddr, Prefix: "bruth:it:"}, env.logger)
		Expect(err).NotTo(HaveOccurred())
		authority, err := auth.NewOpaqueTokenAuthority(table, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		return authority, func() { _ = closeFn() }
	}
)

// client posts JSON to the API under test.
type client struct {
	base string
	http *http.Client
}

func (c *client) post(path string, body any, token string) (int, map[string]any) {
	data, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())
	req, err := http.NewRequestWithContext(env.ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var decoded map[string]any
	Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())
	return resp.StatusCode, decoded
}

var _ = Describe("Auth HTTP API on PostgreSQL", func() {
	var (
		c          *client
		server     *httptest.Server
		closeStack func()
	)

	start := func(stack tokenStack) {
		truncateUsers()

		hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		credentials, err := auth.NewCredentialStoreWithLogger(postgres.NewUserRepository(env.pool), hasher, env.logger)
		Expect(err).NotTo(HaveOccurred())

		var tokens auth.TokenAuthority
		tokens, closeStack = stack()
		svc, err := auth.NewServiceWithLogger(credentials, tokens, env.logger)
		Expect(err).NotTo(HaveOccurred())

		handler, err := api.NewHandler(svc, env.logger)
		Expect(err).NotTo(HaveOccurred())
		server = httptest.NewServer(api.NewRouter(handler, api.RouterOptions{Logger: env.logger}))
		c = &client{base: server.URL, http: server.Client()}
	}

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
		if closeStack != nil {
			closeStack()
		}
	})

	register := func(username, email, password string) (int, map[string]any) {
		return c.post(api.PathRegister, api.RegisterRequest{Username: username, Email: email, Password: password}, "")
	}

	DescribeTable("register, login, verify and logout",
		func(stack tokenStack, revocable bool) {
			start(stack)

			status, body := register("alice", "alice@example.com", "correct horse battery")
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["token"]).NotTo(BeEmpty())
			id := body["id"]

			By("rejecting duplicate usernames and emails")
			status, body = register("ALICE", "other@example.com", "correct horse battery")
			Expect(status).To(Equal(http.StatusConflict))
			Expect(body["message"]).To(Equal(api.MsgUserExists))
			status, _ = register("bob", "Alice@Example.com", "correct horse battery")
			Expect(status).To(Equal(http.StatusConflict))

			By("logging in by username or email")
			status, body = c.post(api.PathLogin, api.LoginRequest{Login: "alice", Password: "correct horse battery"}, "")
			Expect(status).To(Equal(http.StatusOK))
			token := body["token"].(string)
			status, _ = c.post(api.PathLogin, api.LoginRequest{Login: "alice@example.com", Password: "correct horse battery"}, "")
			Expect(status).To(Equal(http.StatusOK))

			By("rejecting wrong passwords and unknown users alike")
			status, wrong := c.post(api.PathLogin, api.LoginRequest{Login: "alice", Password: "wrong password"}, "")
			Expect(status).To(Equal(http.StatusUnauthorized))
			status, unknown := c.post(api.PathLogin, api.LoginRequest{Login: "nobody", Password: "wrong password"}, "")
			Expect(status).To(Equal(http.StatusUnauthorized))
			Expect(unknown).To(Equal(wrong))

			By("verifying the session token")
			status, body = c.post(api.PathVerify, struct{}{}, token)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["id"]).To(Equal(id))
			Expect(body["username"]).To(Equal("alice"))
			Expect(body["verified"]).To(BeFalse())

			status, body = c.post(api.PathVerify, struct{}{}, "garbage")
			Expect(status).To(Equal(http.StatusUnauthorized))
			Expect(body["message"]).To(Equal(api.MsgInvalidToken))

			By("logging out")
			status, _ = c.post(api.PathLogout, struct{}{}, token)
			Expect(status).To(Equal(http.StatusOK))

			status, _ = c.post(api.PathVerify, struct{}{}, token)
			if revocable {
				Expect(status).To(Equal(http.StatusUnauthorized))
				status, body = c.post(api.PathLogout, struct{}{}, token)
				Expect(status).To(Equal(http.StatusConflict))
				Expect(body["message"]).To(Equal(api.MsgAlreadyLoggedOut))
			} else {
				Expect(status).To(Equal(http.StatusOK), "signed tokens stay valid until expiry")
			}
		},
		Entry("signed tokens", signedStack, false),
		Entry("opaque tokens in memory", opaqueMemoryStack, true),
		Entry("opaque tokens in redis", opaqueRedisStack, true),
	)

	DescribeTable("verify after the user is deleted",
		func(stack tokenStack) {
			start(stack)

			status, body := register("carol", "carol@example.com", "correct horse battery")
			Expect(status).To(Equal(http.StatusOK))
			token := body["token"].(string)

			truncateUsers()

			status, body = c.post(api.PathVerify, struct{}{}, token)
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(body["message"]).To(Equal(api.MsgUserNotFound))
		},
		Entry("signed tokens", signedStack),
		Entry("opaque tokens in redis", opaqueRedisStack),
	)

	It("rejects invalid registrations with 400", func() {
		start(signedStack)

		status, _ := register("x", "x@example.com", "correct horse battery")
		Expect(status).To(Equal(http.StatusBadRequest))
		status, _ = register("dave", "not-an-email", "correct horse battery")
		Expect(status).To(Equal(http.StatusBadRequest))
	})
})
