// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/pookietalk/authcore/internal/auth"
	"github.com/pookietalk/authcore/internal/auth/postgres"
	"github.com/pookietalk/authcore/internal/token"
)

var _ = Describe("UserDirectory", func() {
	var (
		ctx context.Context
		dir *postgres.UserDirectory
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateUsers(ctx)
		dir = postgres.NewUserDirectory(testPool)
	})

	Describe("Save", func() {
		It("assigns an ID and creation time", func() {
			saved, err := dir.Save(ctx, &auth.Credential{
				Username:     "alice",
				PasswordHash: "$2a$04$hash",
				Email:        "a@x.com",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.ID.String()).To(HaveLen(26))
			Expect(saved.Role).To(Equal(auth.RoleUser))
			Expect(saved.CreatedAt).To(BeTemporally("~", time.Now(), time.Minute))

			byID, err := dir.FindByID(ctx, saved.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Username).To(Equal("alice"))
		})

		It("rejects a username differing only in case", func() {
			_, err := dir.Save(ctx, &auth.Credential{Username: "alice", PasswordHash: "h", Email: "a@x.com"})
			Expect(err).NotTo(HaveOccurred())

			_, err = dir.Save(ctx, &auth.Credential{Username: "ALICE", PasswordHash: "h", Email: "b@x.com"})
			Expect(errors.Is(err, auth.ErrDuplicateUsername)).To(BeTrue(), "got %v", err)
		})

		It("rejects a duplicate email", func() {
			_, err := dir.Save(ctx, &auth.Credential{Username: "alice", PasswordHash: "h", Email: "a@x.com"})
			Expect(err).NotTo(HaveOccurred())

			_, err = dir.Save(ctx, &auth.Credential{Username: "bob", PasswordHash: "h", Email: "A@X.com"})
			Expect(errors.Is(err, auth.ErrDuplicateEmail)).To(BeTrue(), "got %v", err)
		})

		It("rejects an unknown role", func() {
			_, err := dir.Save(ctx, &auth.Credential{Username: "alice", PasswordHash: "h", Email: "a@x.com", Role: "ROOT"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("FindByUsername", func() {
		It("matches case-insensitively", func() {
			_, err := dir.Save(ctx, &auth.Credential{Username: "Alice", PasswordHash: "h", Email: "a@x.com"})
			Expect(err).NotTo(HaveOccurred())

			cred, err := dir.FindByUsername(ctx, "aLiCe")
			Expect(err).NotTo(HaveOccurred())
			Expect(cred.Username).To(Equal("Alice"))
		})

		It("reports absence as not found", func() {
			_, err := dir.FindByUsername(ctx, "nobody")
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("behind the auth service", func() {
		var svc *auth.Service

		BeforeEach(func() {
			hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
			Expect(err).NotTo(HaveOccurred())
			codec, err := token.NewCodec([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
			Expect(err).NotTo(HaveOccurred())
			svc, err = auth.NewService(dir, hasher, codec)
			Expect(err).NotTo(HaveOccurred())
		})

		It("registers and authenticates", func() {
			registered, err := svc.Register(ctx, auth.Registration{
				Username: "alice", Password: "P@ssw0rd", ConfirmPassword: "P@ssw0rd", Email: "a@x.com",
			})
			Expect(err).NotTo(HaveOccurred())

			outcome, err := svc.Authenticate(ctx, "alice", "P@ssw0rd")
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.UserID).To(Equal(registered.UserID))

			cred, err := svc.Identify(ctx, outcome.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(cred.Email).To(Equal("a@x.com"))
		})

		It("lets exactly one concurrent registration of a username win", func() {
			const workers = 6
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				wins    int
				taken   int
				unknown []error
			)
			for i := range workers {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := svc.Register(ctx, auth.Registration{
						Username:        "racer",
						Password:        "P@ssw0rd",
						ConfirmPassword: "P@ssw0rd",
						Email:           fmt.Sprintf("racer%d@x.com", i),
					})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						wins++
					case errors.Is(err, auth.ErrUsernameTaken):
						taken++
					default:
						unknown = append(unknown, err)
					}
				}(i)
			}
			wg.Wait()

			Expect(unknown).To(BeEmpty())
			Expect(wins).To(Equal(1))
			Expect(taken).To(Equal(workers - 1))
		})
	})
})
