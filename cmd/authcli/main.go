package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"multiauth/internal/app"
	"multiauth/internal/config"
	"multiauth/internal/domain"
)

// terminal serializa la lectura de stdin entre el menu y los hooks de interaccion.
type terminal struct {
	lines chan string
	eof   bool
}

func newTerminal() *terminal {
	t := &terminal{lines: make(chan string)}
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			t.lines <- strings.TrimSpace(scanner.Text())
		}
		close(t.lines)
	}()
	return t
}

func (t *terminal) ask(prompt string) string {
	fmt.Print(prompt)
	line, ok := <-t.lines
	if !ok {
		t.eof = true
	}
	return line
}

// askUntil espera una linea salvo que done se cierre antes.
func (t *terminal) askUntil(prompt string, done <-chan struct{}) (string, bool) {
	fmt.Print(prompt)
	select {
	case line, ok := <-t.lines:
		return line, ok
	case <-done:
		fmt.Println("\n(interaccion cerrada)")
		return "", false
	}
}

func main() {
	ctx := context.Background()
	term := newTerminal()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	var application *app.App
	hooks := app.Hooks{
		Challenge: func(id, pageURL string) {
			go func() {
				done, ok := application.Challenges.Done(id)
				if !ok {
					return
				}
				fmt.Printf("\nAbre %s, resuelve el reCAPTCHA y pega la URI %stoken?token=... \n", pageURL, cfg.CallbackScheme)
				line, ok := term.askUntil("URI (vacio para cancelar) > ", done)
				if !ok {
					return
				}
				if line == "" {
					_ = application.Challenges.Cancel(id)
					return
				}
				if err := application.Challenges.Report(id, line); err != nil {
					fmt.Printf("No se pudo reportar: %v\n", err)
				}
			}()
		},
		OAuth: func(id, startURL string) {
			go func() {
				done, ok := application.Browser.Done(id)
				if !ok {
					return
				}
				fmt.Printf("\nAbre %s e inicia sesion.\n", startURL)
				line, ok := term.askUntil("Pega la URL de redireccion (vacio para cancelar) > ", done)
				if !ok {
					return
				}
				if line == "" {
					_ = application.Browser.Cancel(id)
					return
				}
				params, err := redirectParams(line)
				if err != nil {
					fmt.Printf("URL invalida: %v\n", err)
					_ = application.Browser.Cancel(id)
					return
				}
				if err := application.Browser.Complete(id, params); err != nil {
					fmt.Printf("No se pudo completar: %v\n", err)
				}
			}()
		},
	}

	application, err = app.Build(ctx, cfg, logger, hooks)
	if err != nil {
		log.Fatal(err)
	}
	defer application.Close()

	timeoutMs := cfg.DefaultTimeoutMs
	auth := application.Auth
	phoneSession := uuid.NewString()

	for {
		fmt.Println("\n===== Auth CLI =====")
		fmt.Println("[1] Login con email o usuario")
		fmt.Println("[2] Registrarse")
		fmt.Println("[3] Restablecer password")
		fmt.Println("[4] Pedir codigo SMS")
		fmt.Println("[5] Verificar codigo SMS")
		fmt.Println("[6] Login con Google")
		fmt.Println("[7] Login con Facebook")
		fmt.Println("[8] Logout")
		fmt.Println("[9] Salir")
		choice := term.ask("Selecciona una opcion: ")
		if term.eof {
			return
		}

		switch choice {
		case "1":
			login := term.ask("Usuario o email: ")
			password := term.ask("Password: ")
			res, err := auth.LoginWithPassword(ctx, login, password, timeoutMs)
			printResult(res, err)
		case "2":
			login := term.ask("Usuario: ")
			email := term.ask("Email: ")
			password := term.ask("Password: ")
			res, err := auth.Register(ctx, login, email, password, timeoutMs)
			printResult(res, err)
		case "3":
			login := term.ask("Usuario o email: ")
			if err := auth.ResetPassword(ctx, login, timeoutMs); err != nil {
				fmt.Printf("Error: %v\n", err)
			} else {
				fmt.Println("Correo de restablecimiento enviado.")
			}
		case "4":
			number := term.ask("Telefono (+E.164): ")
			testMode := strings.EqualFold(term.ask("Modo test? [s/N]: "), "s")
			phoneSession = uuid.NewString()
			if _, err := auth.RequestVerificationCode(ctx, phoneSession, number, timeoutMs, testMode); err != nil {
				fmt.Printf("Error: %v\n", err)
			} else {
				fmt.Println("Codigo enviado.")
			}
		case "5":
			code := term.ask("Codigo: ")
			res, err := auth.LoginWithVerificationCode(ctx, phoneSession, code, timeoutMs)
			printResult(res, err)
		case "6":
			res, err := auth.LoginWithOAuth(ctx, domain.ProviderGoogle, "", cfg.ChallengeTimeoutMs)
			printResult(res, err)
		case "7":
			res, err := auth.LoginWithOAuth(ctx, domain.ProviderFacebook, "", cfg.ChallengeTimeoutMs)
			printResult(res, err)
		case "8":
			if err := auth.Logout(); err != nil {
				fmt.Printf("Error: %v\n", err)
			} else {
				fmt.Println("Sesion cerrada.")
			}
		case "9":
			return
		default:
			fmt.Println("Opcion invalida.")
		}
	}
}

// redirectParams junta query y fragmento: Google devuelve id_token en el fragmento.
func redirectParams(raw string) (url.Values, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	params := u.Query()
	if u.Fragment != "" {
		frag, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return nil, err
		}
		for k, v := range frag {
			params[k] = v
		}
	}
	return params, nil
}

func printResult(res domain.AuthResult, err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !res.Success {
		fmt.Printf("Fallo: %s\n", res.ErrorMessage)
		return
	}
	if res.UserData != nil {
		fmt.Printf("Bienvenido %s (%s, proveedor %s)\n", res.UserData.Email, res.UserData.UserID, res.UserData.Provider)
	}
	if res.Tokens != nil {
		fmt.Printf("Token valido hasta %s\n", res.Tokens.TokenExpiry.Local().Format(time.RFC1123))
	}
}
