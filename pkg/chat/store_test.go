package chat_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatbox/pkg/chat"
	"github.com/papercomputeco/chatbox/pkg/storage/inmemory"
)

var _ = Describe("Store", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		clock  *fakeClock
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		clock = newFakeClock()
	})

	newStore := func(opts ...chat.StoreOption) *chat.Store {
		opts = append([]chat.StoreOption{chat.WithClock(clock.Now)}, opts...)
		return chat.NewStore(driver, nil, opts...)
	}

	Describe("Initialize", func() {
		Context("when nothing is persisted", func() {
			It("starts from the seed log and the light theme", func() {
				snap := newStore().Initialize(ctx)

				Expect(roles(snap.Messages)).To(Equal([]chat.Role{chat.RoleSystem, chat.RoleAssistant}))
				Expect(snap.Messages[0].Content).To(Equal(chat.DefaultSystemPrompt))
				Expect(snap.Messages[1].Content).To(Equal(chat.DefaultGreeting))
				Expect(snap.Theme).To(Equal(chat.ThemeLight))
				Expect(snap.Busy).To(BeFalse())
			})

			It("persists the seed log", func() {
				snap := newStore().Initialize(ctx)

				data, err := driver.Get(ctx, chat.DefaultLogKey)
				Expect(err).NotTo(HaveOccurred())

				restored, err := chat.DecodeLog(data)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(restored)).To(Equal(ids(snap.Messages)))
			})

			It("uses the configured seed texts", func() {
				snap := newStore(chat.WithSeed("Be terse.", "Yo.")).Initialize(ctx)

				Expect(snap.Messages[0].Content).To(Equal("Be terse."))
				Expect(snap.Messages[1].Content).To(Equal("Yo."))
			})
		})

		Context("when the persisted log is unparsable", func() {
			It("falls back to the seed log without failing", func() {
				Expect(driver.Set(ctx, chat.DefaultLogKey, []byte("{not json"))).To(Succeed())

				var snap chat.Snapshot
				Expect(func() { snap = newStore().Initialize(ctx) }).NotTo(Panic())

				Expect(snap.Messages).To(HaveLen(2))
				Expect(snap.Visible()).To(HaveLen(1))
			})

			It("overwrites the corrupt value with the seed", func() {
				Expect(driver.Set(ctx, chat.DefaultLogKey, []byte("garbage"))).To(Succeed())
				newStore().Initialize(ctx)

				data, err := driver.Get(ctx, chat.DefaultLogKey)
				Expect(err).NotTo(HaveOccurred())
				_, err = chat.DecodeLog(data)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		Context("when the persisted log fails its checksum", func() {
			It("falls back to the seed log", func() {
				original := newStore()
				original.Initialize(ctx)
				original.AppendMessage(chat.RoleUser, "remember me")

				data, err := driver.Get(ctx, chat.DefaultLogKey)
				Expect(err).NotTo(HaveOccurred())
				// the checksum is the last field: flip its final hex digit
				tampered := append([]byte{}, data...)
				last := len(tampered) - 3
				if tampered[last] == 'a' {
					tampered[last] = 'b'
				} else {
					tampered[last] = 'a'
				}
				Expect(driver.Set(ctx, chat.DefaultLogKey, tampered)).To(Succeed())

				snap := newStore().Initialize(ctx)
				Expect(snap.Messages).To(HaveLen(2))
			})
		})

		Context("when storage cannot be read", func() {
			It("falls back to defaults without writing over stored state", func() {
				failing := &unreadableDriver{Driver: inmemory.NewDriver()}
				store := chat.NewStore(failing, nil, chat.WithClock(clock.Now))

				snap := store.Initialize(ctx)

				Expect(snap.Messages).To(HaveLen(2))
				Expect(snap.Theme).To(Equal(chat.ThemeLight))
				Expect(failing.sets).To(Equal(0))
			})
		})

		It("restores the log and the theme independently", func() {
			first := newStore()
			first.Initialize(ctx)
			first.AppendMessage(chat.RoleUser, "hello")
			Expect(driver.Set(ctx, chat.DefaultThemeKey, []byte("sepia"))).To(Succeed())

			snap := newStore().Initialize(ctx)
			Expect(snap.Messages).To(HaveLen(3))
			Expect(snap.Theme).To(Equal(chat.ThemeLight))

			Expect(driver.Set(ctx, chat.DefaultLogKey, []byte("[]"))).To(Succeed())
			Expect(driver.Set(ctx, chat.DefaultThemeKey, []byte("dark"))).To(Succeed())

			snap = newStore().Initialize(ctx)
			Expect(snap.Messages).To(HaveLen(2))
			Expect(snap.Theme).To(Equal(chat.ThemeDark))
		})
	})

	Describe("AppendMessage", func() {
		It("appends a message with a fresh id at the end of the log", func() {
			store := newStore(chat.WithIDGenerator(sequentialIDs()))
			store.Initialize(ctx)

			msg := store.AppendMessage(chat.RoleUser, "2+2?")

			Expect(msg.ID).To(Equal("msg-5"))
			Expect(msg.Role).To(Equal(chat.RoleUser))
			Expect(msg.Content).To(Equal("2+2?"))

			log := store.Messages()
			Expect(log).To(HaveLen(3))
			Expect(log[2]).To(Equal(msg))
		})

		It("keeps timestamps non-decreasing when the clock goes backwards", func() {
			store := newStore()
			store.Initialize(ctx)

			first := store.AppendMessage(chat.RoleUser, "one")
			clock.Rewind(time.Hour)
			second := store.AppendMessage(chat.RoleAssistant, "two")

			Expect(second.CreatedAt).To(BeTemporally(">=", first.CreatedAt))
			Expect(chat.ValidateLog(store.Messages())).To(Succeed())
		})

		It("ignores unknown roles", func() {
			store := newStore()
			store.Initialize(ctx)

			msg := store.AppendMessage(chat.Role("tool"), "nope")

			Expect(msg).To(Equal(chat.Message{}))
			Expect(store.Messages()).To(HaveLen(2))
		})

		It("keeps the in-memory log authoritative when writes fail", func() {
			store := newStore()
			store.Initialize(ctx)
			store.AppendMessage(chat.RoleUser, "saved")

			driver.SetFailWrites(true)
			Expect(func() { store.AppendMessage(chat.RoleUser, "lost on restart") }).NotTo(Panic())
			Expect(store.VisibleMessages()).To(HaveLen(3))

			driver.SetFailWrites(false)
			restarted := newStore().Initialize(ctx)
			visible := restarted.Visible()
			Expect(visible).To(HaveLen(2))
			Expect(visible[1].Content).To(Equal("saved"))
		})
	})

	Describe("persistence round trip", func() {
		It("reproduces the visible messages and the theme after a restart", func() {
			store := newStore()
			store.Initialize(ctx)
			store.AppendMessage(chat.RoleUser, "first")
			store.AppendMessage(chat.RoleAssistant, "**second**")
			store.SetTheme(chat.ThemeDark)
			before := store.Snapshot()

			after := newStore().Initialize(ctx)

			Expect(ids(after.Visible())).To(Equal(ids(before.Visible())))
			Expect(roles(after.Visible())).To(Equal(roles(before.Visible())))
			for i, m := range after.Visible() {
				Expect(m.Content).To(Equal(before.Visible()[i].Content))
				Expect(m.CreatedAt.Equal(before.Visible()[i].CreatedAt)).To(BeTrue())
			}
			Expect(after.Theme).To(Equal(chat.ThemeDark))
		})
	})

	Describe("Reset", func() {
		It("returns to a fresh two message seed regardless of prior length", func() {
			store := newStore()
			original := store.Initialize(ctx)
			for i := 0; i < 5; i++ {
				store.AppendMessage(chat.RoleUser, "question")
				store.AppendMessage(chat.RoleAssistant, "answer")
			}

			store.Reset()

			Expect(store.Messages()).To(HaveLen(2))
			Expect(store.VisibleMessages()).To(HaveLen(1))
			for _, m := range original.Messages {
				Expect(ids(store.Messages())).NotTo(ContainElement(m.ID))
			}

			restarted := newStore().Initialize(ctx)
			Expect(ids(restarted.Messages)).To(Equal(ids(store.Messages())))
		})

		It("leaves the theme alone", func() {
			store := newStore()
			store.Initialize(ctx)
			store.SetTheme(chat.ThemeDark)

			store.Reset()

			Expect(store.Theme()).To(Equal(chat.ThemeDark))
		})
	})

	Describe("Replace", func() {
		It("swaps in a valid log and persists it", func() {
			source := chat.NewStore(inmemory.NewDriver(), nil, chat.WithClock(clock.Now))
			source.Initialize(ctx)
			source.AppendMessage(chat.RoleUser, "imported")

			store := newStore()
			store.Initialize(ctx)
			Expect(store.Replace(source.Messages())).To(Succeed())

			restarted := newStore().Initialize(ctx)
			Expect(ids(restarted.Messages)).To(Equal(ids(source.Messages())))
		})

		It("rejects a log without a leading system message", func() {
			store := newStore()
			store.Initialize(ctx)

			err := store.Replace([]chat.Message{{ID: "a", Role: chat.RoleUser, Content: "hi"}})
			Expect(err).To(MatchError(chat.ErrMalformedLog))
			Expect(store.Messages()).To(HaveLen(2))
		})
	})

	Describe("themes", func() {
		It("is idempotent when the theme is unchanged", func() {
			store := newStore()
			store.Initialize(ctx)

			emitted := 0
			unsubscribe := store.Subscribe(func(chat.Snapshot) { emitted++ })
			defer unsubscribe()

			store.SetTheme(chat.ThemeLight)
			Expect(emitted).To(Equal(0))

			store.SetTheme(chat.ThemeDark)
			store.SetTheme(chat.ThemeDark)
			Expect(emitted).To(Equal(1))
		})

		It("normalizes the theme it is given", func() {
			store := newStore()
			store.Initialize(ctx)

			store.SetTheme(chat.Theme("DARK"))
			Expect(store.Theme()).To(Equal(chat.ThemeDark))

			store.SetTheme(chat.Theme("sepia"))
			Expect(store.Theme()).To(Equal(chat.ThemeDark))
		})

		It("toggles back to the original value after two toggles", func() {
			store := newStore()
			original := store.Initialize(ctx).Theme

			Expect(store.ToggleTheme()).NotTo(Equal(original))
			Expect(store.ToggleTheme()).To(Equal(original))

			data, err := driver.Get(ctx, chat.DefaultThemeKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(string(original)))
		})
	})

	Describe("VisibleMessages", func() {
		It("filters system messages and preserves order", func() {
			store := newStore()
			store.Initialize(ctx)
			store.AppendMessage(chat.RoleUser, "a")
			store.AppendMessage(chat.RoleSystem, "hidden")
			store.AppendMessage(chat.RoleAssistant, "b")

			visible := store.VisibleMessages()
			Expect(roles(visible)).To(Equal([]chat.Role{chat.RoleAssistant, chat.RoleUser, chat.RoleAssistant}))
			Expect(visible[1].Content).To(Equal("a"))
			Expect(visible[2].Content).To(Equal("b"))
		})
	})

	Describe("Subscribe", func() {
		It("delivers a snapshot per mutation with increasing versions", func() {
			store := newStore()
			store.Initialize(ctx)

			var (
				mu   sync.Mutex
				seen []chat.Snapshot
			)
			unsubscribe := store.Subscribe(func(s chat.Snapshot) {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, s)
			})

			store.AppendMessage(chat.RoleUser, "one")
			store.ToggleTheme()
			store.Reset()

			mu.Lock()
			Expect(seen).To(HaveLen(3))
			Expect(seen[0].Messages).To(HaveLen(3))
			Expect(seen[1].Theme).To(Equal(chat.ThemeDark))
			Expect(seen[2].Messages).To(HaveLen(2))
			Expect(seen[1].Version).To(Equal(seen[0].Version + 1))
			Expect(seen[2].Version).To(Equal(seen[1].Version + 1))
			mu.Unlock()

			unsubscribe()
			store.AppendMessage(chat.RoleUser, "unseen")

			mu.Lock()
			Expect(seen).To(HaveLen(3))
			mu.Unlock()
		})

		It("hands out copies that later mutations do not change", func() {
			store := newStore()
			snap := store.Initialize(ctx)

			store.AppendMessage(chat.RoleUser, "later")

			Expect(snap.Messages).To(HaveLen(2))
		})
	})

	It("keeps stores with distinct keys independent on a shared driver", func() {
		a := newStore(chat.WithKeys("a_state", "a_theme"))
		b := newStore(chat.WithKeys("b_state", "b_theme"))
		a.Initialize(ctx)
		b.Initialize(ctx)

		a.AppendMessage(chat.RoleUser, "only in a")
		a.SetTheme(chat.ThemeDark)

		restartedB := newStore(chat.WithKeys("b_state", "b_theme")).Initialize(ctx)
		Expect(restartedB.Messages).To(HaveLen(2))
		Expect(restartedB.Theme).To(Equal(chat.ThemeLight))
	})
})
