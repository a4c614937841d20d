// set-admin-role asigna el claim de rol a una cuenta existente.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"intechlab/config"
	"intechlab/identity"
	"intechlab/models"
)

var role string

var rootCmd = &cobra.Command{
	Use:   "set-admin-role <email>",
	Short: "Asigna el rol (admin por defecto) a una cuenta del portal",
	Long: `Asigna el claim de rol a la cuenta con ese correo.

La conexion se toma de POSTGRES_DSN (tambien desde .env.local o .env).
El usuario debe cerrar sesion y volver a entrar para recibir el nuevo rol.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, file := range []string{".env.local", ".env"} {
			_ = godotenv.Load(file)
		}
		dsn := os.Getenv("POSTGRES_DSN")
		if dsn == "" {
			return fmt.Errorf("POSTGRES_DSN es obligatorio")
		}

		ctx := cmd.Context()
		db, err := config.InitializeDatabase(ctx, dsn)
		if err != nil {
			return err
		}
		defer db.Close()

		user, err := setRole(ctx, identity.NewStore(db), args[0], models.Role(role))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rol %s asignado a %s (%s)\n", role, user.Email, user.UID)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "Rol a asignar: admin, worker o doctor")
}

func setRole(ctx context.Context, accounts identity.Accounts, email string, r models.Role) (identity.User, error) {
	email = strings.TrimSpace(email)
	if !models.IsValidEmail(email) {
		return identity.User{}, models.Invalid("email", "ingresa un correo valido")
	}
	if !r.Valid() {
		return identity.User{}, models.Invalid("role", "el rol debe ser admin, worker o doctor")
	}
	user, err := accounts.GetUserByEmail(ctx, email)
	if err != nil {
		return identity.User{}, fmt.Errorf("buscar %s: %w", email, err)
	}
	if err := accounts.SetRole(ctx, user.UID, r); err != nil {
		return identity.User{}, fmt.Errorf("asignar rol a %s: %w", email, err)
	}
	user.Role = r
	return user, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
