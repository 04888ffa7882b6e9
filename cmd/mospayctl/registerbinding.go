package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/infrastructure/persistence/postgres"
	"github.com/aretechltd/mospay/internal/procedure"
	"github.com/aretechltd/mospay/internal/wire"
)

func registerBindingCmd() *cobra.Command {
	var (
		appID       string
		serviceName string
		route       string
		entity      string
		country     string
		serviceURL  string
		kind        string

		forwardScript  string
		responseScript string
		statusScript   string
		withStatus     bool
	)

	cmd := &cobra.Command{
		Use:   "register-binding",
		Short: "Register an (appId, serviceName, route) binding and its procedures",
		Long: `register-binding validates the tuple, grants the service to the client,
creates the service binding and mints the forward and response procedure
registrations the dispatcher resolves at runtime.

With --kind postgres the handles name SQL functions you install separately;
--with-status additionally installs a generated status-check function that
answers like the gateway's own status projection. With --kind script the
procedure sources are read from the --*-script files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := procedure.Resolve(appID, serviceName, route)
			if err != nil {
				return err
			}

			procKind := domain.ProcedureKind(kind)
			switch procKind {
			case domain.ProcedureKindPostgres, domain.ProcedureKindScript:
			default:
				return fmt.Errorf("unknown procedure kind %q (postgres or script)", kind)
			}

			ctx := cmd.Context()
			db, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			admin := postgres.NewAdminStore(db.Pool)

			client, err := admin.FindClientByAppID(ctx, appID)
			if err != nil {
				return fmt.Errorf("client %s: %w", appID, err)
			}
			svc, err := admin.FindServiceByName(ctx, serviceName)
			if err != nil {
				return err
			}

			if err := admin.GrantService(ctx, client.ID, svc.ID); err != nil {
				return err
			}

			binding := &domain.ServiceBinding{
				ClientID:    client.ID,
				ServiceID:   svc.ID,
				AppID:       appID,
				ServiceName: serviceName,
				Route:       route,
				EntityName:  entity,
				Country:     country,
				ServiceURL:  serviceURL,
				IsActive:    true,
			}
			if err := admin.UpsertBinding(ctx, binding); err != nil {
				return err
			}
			fmt.Printf("registered binding %s/%s/%s\n", appID, serviceName, route)

			registrations := []struct {
				variant    domain.ProcedureVariant
				handle     string
				scriptPath string
			}{
				{domain.VariantForward, names.Forward, forwardScript},
				{domain.VariantResponse, names.Response, responseScript},
			}
			if withStatus {
				registrations = append(registrations, struct {
					variant    domain.ProcedureVariant
					handle     string
					scriptPath string
				}{domain.VariantStatus, names.Status, statusScript})
			}

			for _, reg := range registrations {
				source := ""
				if procKind == domain.ProcedureKindScript {
					if reg.scriptPath == "" {
						return fmt.Errorf("kind script requires --%s-script", reg.variant)
					}
					data, err := os.ReadFile(reg.scriptPath)
					if err != nil {
						return fmt.Errorf("read %s: %w", reg.scriptPath, err)
					}
					source = string(data)
				}
				err := admin.UpsertProcedure(ctx, &domain.ProcedureBinding{
					BindingID: binding.ID,
					Variant:   reg.variant,
					Kind:      procKind,
					Handle:    reg.handle,
					Source:    source,
				})
				if err != nil {
					return err
				}
				fmt.Printf("registered %s procedure %s\n", reg.variant, reg.handle)
			}

			if withStatus && procKind == domain.ProcedureKindPostgres {
				sql := statusFunctionSQL(names.Status, route, client, binding, svc)
				if _, err := db.Pool.Exec(ctx, sql); err != nil {
					return fmt.Errorf("install status function: %w", err)
				}
				fmt.Printf("installed status function %s\n", names.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&appID, "app-id", "", "Client app ID, e.g. mos1000")
	cmd.Flags().StringVar(&serviceName, "service", "", "Catalog service name, e.g. mtnmomorwa")
	cmd.Flags().StringVar(&route, "route", "", "Route name, e.g. pay")
	cmd.Flags().StringVar(&entity, "entity", "", "Entity name reported by status checks")
	cmd.Flags().StringVar(&country, "country", "", "Country reported by status checks")
	cmd.Flags().StringVar(&serviceURL, "service-url", "", "Override the catalog service URL for this binding")
	cmd.Flags().StringVar(&kind, "kind", string(domain.ProcedureKindPostgres), "Procedure kind: postgres or script")
	cmd.Flags().StringVar(&forwardScript, "forward-script", "", "Path to the forward procedure source (kind script)")
	cmd.Flags().StringVar(&responseScript, "response-script", "", "Path to the response procedure source (kind script)")
	cmd.Flags().StringVar(&statusScript, "status-script", "", "Path to the status procedure source (kind script)")
	cmd.Flags().BoolVar(&withStatus, "with-status", false, "Also register the status-check variant")
	cmd.MarkFlagRequired("app-id")
	cmd.MarkFlagRequired("service")
	cmd.MarkFlagRequired("route")

	return cmd
}

// statusFunctionSQL renders the status-check function for a binding. It
// projects the stored transaction into the same envelope the gateway's
// in-process status path builds, so both answer identically. CREATE OR
// REPLACE keeps the command re-runnable.
//
// The handle came from procedure.Resolve, so it is identifier-safe; the
// client and binding values are escaped as SQL literals.
func statusFunctionSQL(handle, route string, client *domain.Client, binding *domain.ServiceBinding, svc *domain.Service) string {
	command := route + procedure.StatusSuffix
	return fmt.Sprintf(`
CREATE OR REPLACE FUNCTION public.%q(unique_id text, data_input json)
RETURNS json
LANGUAGE plpgsql
AS $function$
DECLARE
    _status text := '200';
    _message text := 'Transaction status retrieved';
    _action text := 'OUTPUT';
    _transaction_data json;
BEGIN
    SELECT json_build_object(
        'unique_id', t.unique_id,
        'status', t.status,
        'amount', t.amount,
        'mobile_number', t.mobile_number,
        'device_id', t.device_id,
        'created_at', t.created_at,
        'updated_at', t.updated_at,
        'request_payload', t.request_payload,
        'response_payload', t.response_payload
    )
    INTO _transaction_data
    FROM transactions t
    WHERE t.unique_id = $1;

    IF _transaction_data IS NULL THEN
        _status := '404';
        _message := 'Transaction not found';
        _action := 'ERROR';
    END IF;

    RETURN json_build_object(
        'status', _status,
        'type', 'object',
        'message', _message,
        'version', %s,
        'action', _action,
        'command', %s,
        'appName', %s,
        'serviceurl', 'N/A',
        'servicepayload', json_build_array(
            json_build_object('i', 0, 'v', %s),
            json_build_object('i', 1, 'v', %s),
            json_build_object('i', 2, 'v', %s),
            json_build_object('i', 3, 'v', %s),
            json_build_object('i', 4, 'v', %s)
        ),
        'transaction_data', _transaction_data
    );
END;
$function$;`,
		handle,
		sqlLiteral(wire.Version),
		sqlLiteral(command),
		sqlLiteral(client.CompanyName),
		sqlLiteral(client.AppID),
		sqlLiteral(client.CompanyName),
		sqlLiteral(binding.EntityName),
		sqlLiteral(svc.Name),
		sqlLiteral(binding.Country),
	)
}

func sqlLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
