// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"context"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/amethyst-dev/amethyst/pkg/platform"
)

// ResolveRequest is the input to a Resolver.
type ResolveRequest struct {
	Client   platform.Client
	Argument Argument
	// Tokens are the unconsumed message tokens, possibly empty.
	Tokens  []string
	Message *discordgo.Message
	Command *Command
	GuildID string
	// Bound holds the values resolved for earlier arguments.
	Bound *Values
}

// ResolveFunc converts the leading tokens of a request into a value. It
// returns how many tokens it consumed and false when the tokens do not
// describe a valid value. Failure is not an error: the caller falls back to
// the argument's default or reports it missing.
type ResolveFunc func(ctx context.Context, req *ResolveRequest) (value any, consumed int, ok bool)

// Resolver binds a ResolveFunc to an argument type.
type Resolver struct {
	Type    ArgumentType
	Resolve ResolveFunc
}

// Resolvers is a registry of argument resolvers keyed by type.
// It is thread-safe for concurrent access.
type Resolvers struct {
	mu sync.RWMutex
	m  map[ArgumentType]Resolver
}

// NewResolvers returns a registry holding the built-in resolvers.
func NewResolvers() *Resolvers {
	r := &Resolvers{m: make(map[ArgumentType]Resolver)}
	for _, res := range builtinResolvers() {
		r.m[res.Type] = res
	}
	return r
}

// Register adds or replaces a resolver.
func (r *Resolvers) Register(res Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[res.Type] = res
}

// Get returns the resolver for t.
func (r *Resolvers) Get(t ArgumentType) (Resolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.m[t]
	return res, ok
}

var (
	snowflakePattern = regexp.MustCompile(`^\d{17,}$`)
	mentionPattern   = regexp.MustCompile(`^<(@!?|@&|#)(\d{17,})>$`)
)

// snowflake extracts an id from a raw id or a mention token.
func snowflake(token string) (string, bool) {
	if snowflakePattern.MatchString(token) {
		return token, true
	}
	if m := mentionPattern.FindStringSubmatch(token); m != nil {
		return m[2], true
	}
	return "", false
}

func builtinResolvers() []Resolver {
	return []Resolver{
		{Type: ArgString, Resolve: resolveString},
		{Type: ArgStrings, Resolve: resolveStrings},
		{Type: ArgNumber, Resolve: resolveNumber},
		{Type: ArgInteger, Resolve: resolveInteger},
		{Type: ArgBoolean, Resolve: resolveBoolean},
		{Type: ArgMember, Resolve: resolveMember},
		{Type: ArgUser, Resolve: resolveUser},
		{Type: ArgRole, Resolve: resolveRole},
		{Type: ArgRoles, Resolve: resolveRoles},
		{Type: ArgChannel, Resolve: channelResolver(nil)},
		{Type: ArgTextChannel, Resolve: channelResolver(textChannelTypes)},
		{Type: ArgGuildTextChannel, Resolve: channelResolver(guildTextChannelTypes)},
		{Type: ArgVoiceChannel, Resolve: channelResolver(voiceChannelTypes)},
		{Type: ArgCategoryChannel, Resolve: channelResolver(categoryChannelTypes)},
		{Type: ArgMentionable, Resolve: resolveMentionable},
		{Type: ArgAttachment, Resolve: resolveAttachment},
		{Type: ArgSubcommand, Resolve: resolveSubcommand},
	}
}

var (
	textChannelTypes      = []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews, discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM}
	guildTextChannelTypes = []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews}
	voiceChannelTypes     = []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice}
	categoryChannelTypes  = []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory}
)

// channelTypesFor returns the channel types an argument type accepts, or nil
// for any.
func channelTypesFor(t ArgumentType) []discordgo.ChannelType {
	switch t {
	case ArgTextChannel:
		return textChannelTypes
	case ArgGuildTextChannel:
		return guildTextChannelTypes
	case ArgVoiceChannel:
		return voiceChannelTypes
	case ArgCategoryChannel:
		return categoryChannelTypes
	}
	return nil
}

// checkString applies literals, lower-casing and length bounds.
func checkString(arg Argument, s string) (string, bool) {
	if s == "" {
		return "", false
	}
	if len(arg.Literals) > 0 {
		i := slices.IndexFunc(arg.Literals, func(l string) bool { return strings.EqualFold(l, s) })
		if i < 0 {
			return "", false
		}
		s = arg.Literals[i]
	}
	if arg.Lowercase {
		s = strings.ToLower(s)
	}
	n := float64(utf8.RuneCountInString(s))
	if n < arg.Minimum || (arg.Maximum != 0 && n > arg.Maximum) {
		return "", false
	}
	return s, true
}

// checkNumber floors v unless decimals are allowed and applies bounds.
func checkNumber(arg Argument, v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if !arg.AllowDecimals {
		v = math.Floor(v)
	}
	if v < arg.Minimum || (arg.Maximum != 0 && v > arg.Maximum) {
		return 0, false
	}
	return v, true
}

func resolveString(_ context.Context, req *ResolveRequest) (any, int, bool) {
	if len(req.Tokens) == 0 {
		return nil, 0, false
	}
	s, ok := checkString(req.Argument, req.Tokens[0])
	return s, 1, ok
}

func resolveStrings(_ context.Context, req *ResolveRequest) (any, int, bool) {
	if len(req.Tokens) == 0 {
		return nil, 0, false
	}
	out := make([]string, len(req.Tokens))
	for i, t := range req.Tokens {
		if req.Argument.Lowercase {
			t = strings.ToLower(t)
		}
		out[i] = t
	}
	return out, len(req.Tokens), true
}

func resolveNumber(_ context.Context, req *ResolveRequest) (any, int, bool) {
	if len(req.Tokens) == 0 {
		return nil, 0, false
	}
	f, err := strconv.ParseFloat(req.Tokens[0], 64)
	if err != nil {
		return nil, 0, false
	}
	v, ok := checkNumber(req.Argument, f)
	return v, 1, ok
}

func resolveInteger(_ context.Context, req *ResolveRequest) (any, int, bool) {
	if len(req.Tokens) == 0 {
		return nil, 0, false
	}
	n, err := strconv.ParseInt(req.Tokens[0], 10, 64)
	if err != nil {
		return nil, 0, false
	}
	arg := req.Argument
	arg.AllowDecimals = true
	if _, ok := checkNumber(arg, float64(n)); !ok {
		return nil, 0, false
	}
	return n, 1, true
}

func resolveBoolean(_ context.Context, req *ResolveRequest) (any, int, bool) {
	if len(req.Tokens) == 0 {
		return nil, 0, false
	}
	switch strings.ToLower(req.Tokens[0]) {
	case "true", "yes", "y", "on", "enable", "1":
		return true, 1, true
	case "false", "no", "n", "off", "disable", "0":
		return false, 1, true
	}
	return nil, 0, false
}

func guildOf(ctx context.Context, req *ResolveRequest) *discordgo.Guild {
	if req.GuildID == "" || req.Client == nil {
		return nil
	}
	g, err := req.Client.Guild(ctx, req.GuildID)
	if err != nil {
		return nil
	}
	return g
}

func memberMatches(m *discordgo.Member, name string) bool {
	if m == nil || m.User == nil {
		return false
	}
	return strings.EqualFold(m.User.Username, name) ||
		(m.User.GlobalName != "" && strings.EqualFold(m.User.GlobalName, name)) ||
		(m.Nick != "" && strings.EqualFold(m.Nick, name))
}

func resolveMember(ctx context.Context, req *ResolveRequest) (any, int, bool) {
	if len(req.Tokens) == 0 || req.GuildID == "" {
		return nil, 0, false
	}
	token := req.Tokens[0]
	if id, ok := snowflake(token); ok {
		m, err := req.Client.Member(ctx, req.GuildID, id)
		if err != nil {
			return nil, 0, false
		}
		return m, 1, true
	}
	g := guildOf(ctx, req)
	if g == nil {
		return nil, 0, false
	}
	for _, m := range g.Members {
		if memberMatches(m, token) {
			return m, 1, true
		}
	}
	return nil, 0, false
}

func resolveUser(ctx context.Context, req *ResolveRequest) (any, int, bool) {
	if len(req.Tokens) == 0 {
		return nil, 0, false
	}
	token := req.Tokens[0]
	if id, ok := snowflake(token); ok {
		u, err := req.Client.User(ctx, id)
		if err != nil {
			return nil, 0, false
		}
		return u, 1, true
	}
	if g := guildOf(ctx, req); g != nil {
		for _, m := range g.Members {
			if memberMatches(m, token) {
				return m.User, 1, true
			}
		}
	}
	return nil, 0, false
}

func findRole(g *discordgo.Guild, token string) *discordgo.Role {
	if g == nil {
		return nil
	}
	if id, ok := snowflake(token); ok {
		for _, r := range g.Roles {
			if r.ID == id {
				return r
			}
		}
		return nil
	}
	for _, r := range g.Roles {
		if strings.EqualFold(r.Name, token) {
			return r
		}
	}
	return nil
}

func resolveRole(ctx context.Context, req *ResolveRequest) (any, int, bool) {
	if len(req.Tokens) == 0 {
		return nil, 0, false
	}
	r := findRole(guildOf(ctx, req), req.Tokens[0])
	if r == nil {
		return nil, 0, false
	}
	return r, 1, true
}

// resolveRoles consumes every remaining token and succeeds if at least one
// names a role. Unknown tokens are dropped.
func resolveRoles(ctx context.Context, req *ResolveRequest) (any, int, bool) {
	g := guildOf(ctx, req)
	if g == nil || len(req.Tokens) == 0 {
		return nil, 0, false
	}
	var roles []*discordgo.Role
	for _, t := range req.Tokens {
		if r := findRole(g, t); r != nil && !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		return nil, 0, false
	}
	return roles, len(req.Tokens), true
}

func channelResolver(types []discordgo.ChannelType) ResolveFunc {
	accept := func(c *discordgo.Channel, guildID string) bool {
		if c == nil {
			return false
		}
		if guildID != "" && c.GuildID != "" && c.GuildID != guildID {
			return false
		}
		return types == nil || slices.Contains(types, c.Type)
	}
	return func(ctx context.Context, req *ResolveRequest) (any, int, bool) {
		if len(req.Tokens) == 0 {
			return nil, 0, false
		}
		token := req.Tokens[0]
		if id, ok := snowflake(token); ok {
			c, err := req.Client.Channel(ctx, id)
			if err != nil || !accept(c, req.GuildID) {
				return nil, 0, false
			}
			return c, 1, true
		}
		if req.GuildID == "" {
			return nil, 0, false
		}
		chans, err := req.Client.GuildChannels(ctx, req.GuildID)
		if err != nil {
			return nil, 0, false
		}
		name := strings.TrimPrefix(token, "#")
		for _, c := range chans {
			if strings.EqualFold(c.Name, name) && accept(c, req.GuildID) {
				return c, 1, true
			}
		}
		return nil, 0, false
	}
}

func resolveMentionable(ctx context.Context, req *ResolveRequest) (any, int, bool) {
	if len(req.Tokens) == 0 {
		return nil, 0, false
	}
	if strings.HasPrefix(req.Tokens[0], "<@&") {
		if r, n, ok := resolveRole(ctx, req); ok {
			return &Mentionable{Role: r.(*discordgo.Role)}, n, true
		}
		return nil, 0, false
	}
	if req.GuildID != "" {
		if m, n, ok := resolveMember(ctx, req); ok {
			mem := m.(*discordgo.Member)
			return &Mentionable{User: mem.User, Member: mem}, n, true
		}
	}
	if r, n, ok := resolveRole(ctx, req); ok {
		return &Mentionable{Role: r.(*discordgo.Role)}, n, true
	}
	if u, n, ok := resolveUser(ctx, req); ok {
		return &Mentionable{User: u.(*discordgo.User)}, n, true
	}
	return nil, 0, false
}

// resolveAttachment takes the first message attachment not already bound
// to an earlier argument. It consumes no tokens.
func resolveAttachment(_ context.Context, req *ResolveRequest) (any, int, bool) {
	if req.Message == nil {
		return nil, 0, false
	}
	used := map[string]bool{}
	for _, v := range req.Bound.All() {
		if a, ok := v.(*discordgo.MessageAttachment); ok {
			used[a.ID] = true
		}
	}
	for _, a := range req.Message.Attachments {
		if !used[a.ID] {
			return a, 0, true
		}
	}
	return nil, 0, false
}

// resolveSubcommand matches a token against the owning command's children.
func resolveSubcommand(_ context.Context, req *ResolveRequest) (any, int, bool) {
	if len(req.Tokens) == 0 || req.Command == nil {
		return nil, 0, false
	}
	child, ok := req.Command.Child(strings.ToLower(req.Tokens[0]))
	if !ok {
		return nil, 0, false
	}
	return child.Name, 1, true
}
