package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/apiclient"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/form"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/selection"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

// session 一次命令执行使用的客户端状态
type session struct {
	client    *apiclient.Client
	store     *tree.Store
	selection *selection.Controller
	form      *form.Controller
	logger    *zap.Logger
}

func newSession(cmd *cobra.Command, assumeYes bool) *session {
	logger := newLogger()
	client := newClient(logger)
	opts := []tree.Option{tree.WithLogger(logger)}
	if cliConfig.GetBool("sorted") {
		opts = append(opts, tree.WithOrder(tree.ByName))
	}
	store := tree.NewStore(opts...)

	confirm := selection.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		if assumeYes {
			return true, nil
		}
		return promptConfirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
	})
	sel := selection.NewController(store, client, confirm, client, pageConfig(), logger)
	return &session{
		client:    client,
		store:     store,
		selection: sel,
		form:      form.NewController(client, store, sel, logger),
		logger:    logger,
	}
}

// load 拉取项目的装配体和零件并填充 store
func (s *session) load(ctx context.Context, projectID uint) error {
	assemblies, parts, err := s.client.LoadProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load project %d: %w", projectID, err)
	}
	s.store.Load(assemblies, parts)
	return nil
}

// projectOf 未指定项目时使用记住的选中项目
func (s *session) projectOf(ctx context.Context, flag uint) (uint, error) {
	if flag != 0 {
		return flag, nil
	}
	id, err := s.client.GetSelectedProject(ctx)
	if err != nil {
		return 0, fmt.Errorf("get selected project: %w", err)
	}
	if id == nil {
		return 0, fmt.Errorf("no project given and no project selected, use --project or select-project")
	}
	return *id, nil
}

func promptConfirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
